package helpers

import (
	"database/sql"
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bombverse/market-indexer/internal/db"
	"github.com/bombverse/market-indexer/internal/logger"
	"github.com/bombverse/market-indexer/internal/migrations"
	"github.com/bombverse/market-indexer/pkg/config"
)

// NewTestDB creates a new temporary SQLite database for testing purposes
func NewTestDB(t *testing.T, dbName string) *sql.DB {
	t.Helper()

	tmpDBPath := path.Join(t.TempDir(), dbName)

	dbConfig := config.DatabaseConfig{Path: tmpDBPath}
	dbConfig.ApplyDefaults()

	database, err := db.NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)

	require.NoError(t, migrations.RunMigrationsDB(logger.NewNopLogger(), database))

	t.Cleanup(func() { database.Close() })

	return database
}
