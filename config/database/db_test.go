package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qareview/config"
	"qareview/internal/review/repository"
)

func TestConnectSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "review.db")
	db, dialect, err := Connect(config.Store{Driver: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, repository.SQLite, dialect)
	repo := repository.NewKVRepository(db, dialect)
	require.NoError(t, repo.Migrate(context.Background()))
	require.NoError(t, repo.Put(context.Background(), "k", "v"))
	assert.FileExists(t, path)
}

func TestConnectUnknownDriver(t *testing.T) {
	_, _, err := Connect(config.Store{Driver: "mongo"})
	assert.ErrorContains(t, err, "unknown store driver")
}
