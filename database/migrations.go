package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"nimblevision/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Models lists every table managed by the service, parents before children
func Models() []interface{} {
	return []interface{}{
		&User{},
		&UserDevice{},
		&Plan{},
		&City{},
		&Subscription{},
		&Tank{},
		&Complaint{},
		&ServiceEngineer{},
		&PasswordReset{},
		&AuditLog{},
	}
}

// AutoMigrateModels creates the schema from the gorm models (SQLite and tests)
func AutoMigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// RunMigrations brings the schema up to date for the configured driver
func RunMigrations() error {
	log.Info().Str("driver", config.AppConfig.DBDriver).Msg("Running database migrations")

	var err error
	if config.AppConfig.DBDriver == "postgres" {
		err = withMigrator(func(m *migrate.Migrate) error { return m.Up() })
	} else {
		err = AutoMigrateModels(DB)
	}
	if err != nil {
		log.Error().Err(err).Msg("Migration failed")
		return err
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}

// RollbackMigrations reverts the schema
func RollbackMigrations() error {
	if config.AppConfig.DBDriver == "postgres" {
		return withMigrator(func(m *migrate.Migrate) error { return m.Down() })
	}

	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := DB.Migrator().DropTable(models[i]); err != nil {
			return err
		}
	}
	return nil
}

func withMigrator(fn func(*migrate.Migrate) error) error {
	db, err := sql.Open("postgres", PostgresDSN(config.AppConfig))
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	// closes db as well
	defer m.Close()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
