package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nimblevision/config"
)

var DB *gorm.DB

// PostgresDSN builds the connection string from DATABASE_URL or the DB_* settings
func PostgresDSN(cfg config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBSSLMode,
	)
}

// Open returns a gorm handle for driver ("postgres" or "sqlite") with driver
// errors translated, so unique violations surface as gorm.ErrDuplicatedKey.
func Open(driver, dsn string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	if config.IsDevelopment() {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB driver: %s", driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" || driver == "sqlite3" {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	}
	return db, nil
}

// InitDB initializes the database connection using environment/config
func InitDB() error {
	cfg := config.AppConfig

	var dsn string
	switch cfg.DBDriver {
	case "postgres":
		dsn = PostgresDSN(cfg)
		log.Info().
			Str("host", cfg.DBHost).
			Str("port", cfg.DBPort).
			Str("db", cfg.DBName).
			Bool("database_url", cfg.DatabaseURL != "").
			Msg("Connecting to PostgreSQL")
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), os.ModePerm); err != nil {
			return fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = cfg.DBPath
		log.Info().Str("path", cfg.DBPath).Msg("Opening SQLite database")
	default:
		return fmt.Errorf("unsupported DB driver: %s", cfg.DBDriver)
	}

	db, err := Open(cfg.DBDriver, dsn)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to DB")
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	DB = db
	log.Info().Str("driver", cfg.DBDriver).Msg("Database connection successful")
	return nil
}

// Ping checks that the database answers
func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CloseDB closes the database connection
func CloseDB() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
