package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"qareview/config"
	"qareview/internal/review/repository"
	"qareview/pkg/logger"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	pingAttempts = 5
	pingBackoff  = 2 * time.Second
)

// Connect opens the configured database and waits until it answers a ping.
func Connect(cfg config.Store) (*sql.DB, repository.Dialect, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN())
		if err != nil {
			return nil, "", fmt.Errorf("opening postgres: %w", err)
		}
		if err := ping(db, pingAttempts, pingBackoff); err != nil {
			db.Close()
			return nil, "", err
		}
		return db, repository.Postgres, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, "", fmt.Errorf("creating data directory: %w", err)
			}
		}
		db, err := sql.Open("sqlite", cfg.SQLitePath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, "", fmt.Errorf("opening sqlite: %w", err)
		}
		if err := ping(db, 1, 0); err != nil {
			db.Close()
			return nil, "", err
		}
		return db, repository.SQLite, nil
	default:
		return nil, "", fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// ping retries a few times in case of temporary DNS/network blips.
func ping(db *sql.DB, attempts int, backoff time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.Ping(); err == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return nil
		}
		if i < attempts-1 {
			logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", backoff, err)
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("could not connect to database after %d attempts: %w", attempts, err)
}
