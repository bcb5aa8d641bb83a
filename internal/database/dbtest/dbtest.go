// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rajhholding/internal/config"
	"rajhholding/internal/database"
	"rajhholding/internal/logging"
)

// Open returns a migrated SQLite database in a temporary directory, closed
// when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		URL:         "sqlite:///" + filepath.Join(t.TempDir(), "test.db"),
		AutoMigrate: true,
	}
	db, err := database.Open(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Gateway returns a gateway over a fresh database
func Gateway(t testing.TB) *database.Gateway {
	t.Helper()
	gw, err := database.NewGateway(Open(t))
	require.NoError(t, err)
	return gw
}
