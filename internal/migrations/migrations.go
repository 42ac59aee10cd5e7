package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/bombverse/market-indexer/internal/db"
	"github.com/bombverse/market-indexer/internal/logger"
)

//go:embed 001_cursor_store_1.sql
var mig001 string

//go:embed 002_hero_orders_1.sql
var mig002 string

//go:embed 003_house_orders_1.sql
var mig003 string

func all() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_cursor_store_1.sql",
			SQL: mig001,
		},
		{
			ID:  "002_hero_orders_1.sql",
			SQL: mig002,
		},
		{
			ID:  "003_house_orders_1.sql",
			SQL: mig003,
		},
	}
}

func RunMigrations(dbPath string) error {
	return db.RunMigrations(dbPath, all())
}

// RunMigrationsDB runs all migrations against an already open database.
func RunMigrationsDB(log *logger.Logger, sqlDB *sql.DB) error {
	return db.RunMigrationsDB(log, sqlDB, all())
}
