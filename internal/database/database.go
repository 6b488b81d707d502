// Package database opens the catalog database and keeps its schema current.
package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"katalog/internal/models"

	"github.com/go-extras/go-kit/must"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var embedded embed.FS

var migrations = must.Must(fs.Sub(embedded, "migrations"))

// Options selects and tunes the database connection.
type Options struct {
	Driver     string
	DSN        string
	MaxRetries int
	RetryDelay time.Duration
	Debug      bool
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// Open connects to the database, retrying until it answers a ping or the
// retry budget is spent.
func Open(opts Options, log *slog.Logger) (*gorm.DB, error) {
	dial, err := dialector(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}
	level := gormlogger.Warn
	if opts.Debug {
		level = gormlogger.Info
	}
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	}

	attempts := max(opts.MaxRetries, 1)
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := gorm.Open(dial, cfg)
		if err == nil {
			sqlDB, pingErr := db.DB()
			if pingErr == nil {
				pingErr = sqlDB.Ping()
			}
			if pingErr == nil {
				log.Info("database connected", "driver", opts.Driver, "attempt", i)
				return db, nil
			}
			err = pingErr
		}
		lastErr = err
		if i < attempts {
			log.Warn("database not ready, retrying", "driver", opts.Driver, "attempt", i, "delay", opts.RetryDelay, "error", err)
			time.Sleep(opts.RetryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", opts.Driver, attempts, lastErr)
}

// AutoMigrate creates or alters the catalog tables from the models.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Unit{},
		&models.Brand{},
		&models.Store{},
		&models.Category{},
		&models.Product{},
		&models.ProductImage{},
		&models.ProductCategory{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

// Migrate brings the schema up to date. Postgres runs the versioned SQL
// migrations; other drivers fall back to AutoMigrate.
func Migrate(db *gorm.DB, driver string) error {
	if driver != "postgres" {
		return AutoMigrate(db)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
