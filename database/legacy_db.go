package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"nimblevision/config"
)

// LegacyDB is the raw SQL handle used for aggregate queries
var LegacyDB *sqlx.DB

// InitLegacyDB opens the raw SQL connection through lib/pq or go-sqlite3
func InitLegacyDB() error {
	cfg := config.AppConfig

	var err error
	switch cfg.DBDriver {
	case "postgres":
		LegacyDB, err = sqlx.Open("postgres", PostgresDSN(cfg))
		if err != nil {
			log.Error().Err(err).Msg("Failed to open PostgreSQL legacy database")
			return err
		}
		LegacyDB.SetMaxOpenConns(5)

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), os.ModePerm); err != nil {
			return fmt.Errorf("create sqlite directory: %w", err)
		}
		LegacyDB, err = sqlx.Open("sqlite3", cfg.DBPath)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open SQLite legacy database")
			return err
		}
		if _, err = LegacyDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	if err = LegacyDB.Ping(); err != nil {
		log.Error().Err(err).Msg("Failed to ping legacy database")
		return err
	}

	log.Info().Str("driver", cfg.DBDriver).Msg("Legacy database connection established")
	return nil
}

// UseLegacyDB installs an already open connection, e.g. a sqlmock in tests
func UseLegacyDB(db *sql.DB, driverName string) {
	LegacyDB = sqlx.NewDb(db, driverName)
}

// CloseLegacyDB closes the legacy database connection
func CloseLegacyDB() error {
	if LegacyDB != nil {
		return LegacyDB.Close()
	}
	return nil
}
