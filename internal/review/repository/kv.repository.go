package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"qareview/pkg/logger"
)

// Dialect selects the SQL placeholder style of the driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

const createTable = `CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// KVRepository keeps textual values in the kv_store table, one row per key.
type KVRepository struct {
	DB      *sql.DB
	dialect Dialect
}

func NewKVRepository(db *sql.DB, dialect Dialect) *KVRepository {
	return &KVRepository{DB: db, dialect: dialect}
}

// Migrate creates the kv_store table if it does not exist.
func (r *KVRepository) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, createTable)
	if err != nil {
		logger.Sugar.Errorf("Failed to create kv_store table: %v", err)
	}
	return err
}

func (r *KVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, r.bind("SELECT value FROM kv_store WHERE key = $1"), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read key %s: %v", key, err)
		return "", false, err
	}
	return value, true, nil
}

func (r *KVRepository) Put(ctx context.Context, key, value string) error {
	_, err := r.DB.ExecContext(ctx, r.bind(`INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`), key, value)
	if err != nil {
		logger.Sugar.Errorf("Failed to write key %s: %v", key, err)
	}
	return err
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, r.bind("DELETE FROM kv_store WHERE key = $1"), key)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete key %s: %v", key, err)
	}
	return err
}

// bind rewrites $N placeholders to ? for SQLite.
func (r *KVRepository) bind(query string) string {
	if r.dialect != SQLite {
		return query
	}
	return strings.NewReplacer("$1", "?", "$2", "?").Replace(query)
}
