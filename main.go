package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"qareview/config"
	"qareview/config/database"
	"qareview/internal/dataset"
	"qareview/internal/overrides"
	reviewHandler "qareview/internal/review"
	"qareview/internal/review/repository"
	"qareview/internal/review/service"
	"qareview/internal/workset"
	"qareview/pkg/logger"
	"qareview/router"
	"qareview/socket"
	"qareview/store"
)

func main() {
	cfg, err := config.Load()
	logger.Init(cfg.LogLevel)
	defer logger.Log.Sync()
	if err != nil {
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}

	db, dialect, err := database.Connect(cfg.Store)
	if err != nil {
		logger.Sugar.Fatalf("Failed to connect to the %s store: %v", cfg.Store.Driver, err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := repository.NewKVRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		logger.Sugar.Fatalf("Failed to prepare kv_store: %v", err)
	}

	state := workset.NewStore()
	loader := func() ([]store.Record, error) { return dataset.Load(cfg.DatasetPath) }
	svc := service.NewReviewService(state, overrides.NewBridge(repo), loader, cfg.SaveDebounce)
	// A missing dataset is reported through /api/health, not fatal.
	_ = svc.Load(ctx)

	// The hub pushes snapshots and save outcomes to every connected reviewer.
	hub := socket.NewHub(svc)
	state.Subscribe(func(workset.State) { hub.StateChanged() })
	svc.OnSave(hub.NotifySave)
	go hub.Run(ctx)

	if cfg.DatasetWatch {
		go func() {
			err := dataset.Watch(ctx, cfg.DatasetPath, func() {
				logger.Sugar.Infof("Dataset %s changed, reloading", cfg.DatasetPath)
				_ = svc.Load(ctx)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Sugar.Errorf("Dataset watcher stopped: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.Setup(reviewHandler.NewReviewHandler(svc), hub, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Sugar.Infof("Review server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("HTTP shutdown: %v", err)
	}
	if svc.SavePending() {
		if err := svc.Save(shutdownCtx); err != nil {
			logger.Sugar.Errorf("Final save failed: %v", err)
		}
	}
	svc.Dispose()
}
