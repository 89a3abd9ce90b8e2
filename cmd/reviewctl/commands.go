package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"qareview/config"
	"qareview/config/database"
	"qareview/internal/dataset"
	"qareview/internal/overrides"
	"qareview/internal/review/repository"
	"qareview/internal/review/service"
	"qareview/internal/workset"
	"qareview/pkg/logger"
	"qareview/store"
)

func newRootCmd() *cobra.Command {
	var envFile string
	var verbose bool

	root := &cobra.Command{
		Use:          "reviewctl",
		Short:        "Inspect and export reviewed question/answer records",
		SilenceUsage: true,
	}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.Init("debug")
		}
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "load settings from this .env file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stdout")

	load := func() (config.Config, error) {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		return config.Load(files...)
	}

	root.AddCommand(newDomainsCmd(load), newExportCmd(load), newClearCmd(load))
	return root
}

type configLoader func() (config.Config, error)

// openBridge connects to the configured store and prepares the kv_store table.
func openBridge(ctx context.Context, cfg config.Config) (*overrides.Bridge, *sql.DB, error) {
	db, dialect, err := database.Connect(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewKVRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return overrides.NewBridge(repo), db, nil
}

// session is a review service loaded from the dataset and the store, with no
// autosave.
type session struct {
	svc *service.ReviewService
	db  *sql.DB
}

func openSession(ctx context.Context, cfg config.Config) (*session, error) {
	bridge, db, err := openBridge(ctx, cfg)
	if err != nil {
		return nil, err
	}
	loader := func() ([]store.Record, error) { return dataset.Load(cfg.DatasetPath) }
	svc := service.NewReviewService(workset.NewStore(), bridge, loader, time.Hour)
	if err := svc.Load(ctx); err != nil {
		svc.Dispose()
		db.Close()
		return nil, fmt.Errorf("loading %s: %w", cfg.DatasetPath, err)
	}
	return &session{svc: svc, db: db}, nil
}

func (s *session) Close() {
	s.svc.Dispose()
	s.db.Close()
}

func newDomainsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List domains in first-seen order with their record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, g := range s.svc.Domains() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", g.Domain, g.Count)
			}
			return nil
		},
	}
}

func newExportCmd(load configLoader) *cobra.Command {
	var domain, outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the reviewed records of one domain to <domain>_data.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			data, filename, err := s.svc.Export(domain)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", outDir, err)
			}
			path := filepath.Join(outDir, filename)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "domain to export (required)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the file to")
	return cmd
}

// clear only touches the store, so it works without a dataset.
func newClearCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every persisted override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			bridge, db, err := openBridge(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := bridge.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared persisted overrides")
			return nil
		},
	}
}
