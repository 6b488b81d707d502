// Package app builds the object graph shared by the katalog commands.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"katalog/internal/config"
	"katalog/internal/database"
	"katalog/internal/events"
	"katalog/internal/handlers"
	"katalog/internal/logger"
	"katalog/internal/repositories"
	"katalog/internal/server"
	"katalog/internal/services"
	"katalog/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Runtime holds the configuration, logger and open connections of one
// command invocation.
type Runtime struct {
	Config config.Config
	Log    *slog.Logger
	DB     *gorm.DB
	MQ     *rabbitmq.Client
}

// Open loads configuration from configPath and connects to the database.
func Open(configPath string) (*Runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	db, err := database.Open(database.Options{
		Driver:     cfg.Database.Driver,
		DSN:        cfg.Database.DSN,
		MaxRetries: cfg.Database.MaxRetries,
		RetryDelay: cfg.Database.RetryDelay,
		Debug:      cfg.App.Env == "dev",
	}, log)
	if err != nil {
		return nil, err
	}
	return &Runtime{Config: cfg, Log: log, DB: db}, nil
}

// ConnectBroker dials RabbitMQ. It is a no-op when no URL is configured.
func (r *Runtime) ConnectBroker() error {
	if r.Config.RabbitMQ.URL == "" || r.MQ != nil {
		return nil
	}
	mq, err := rabbitmq.NewClient(rabbitmq.Config{
		URL:   r.Config.RabbitMQ.URL,
		Queue: r.Config.RabbitMQ.Queue,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	r.MQ = mq
	return nil
}

// Close releases the broker and database connections.
func (r *Runtime) Close() error {
	var errs []error
	if r.MQ != nil {
		errs = append(errs, r.MQ.Close())
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

// Services are the catalog use cases wired to GORM repositories.
type Services struct {
	Products *services.ProductService
	Units    *services.UnitService
	Lookups  *services.LookupService
	Export   *services.ExportService
}

// Services wires repositories, the validator and the event publisher. Events
// are only published when a broker is connected.
func (r *Runtime) Services() Services {
	products := repositories.NewGORMProductRepository(r.DB)
	units := repositories.NewGORMUnitRepository(r.DB)
	lookups := repositories.NewGORMLookupRepository(r.DB)

	var publisher services.EventPublisher
	if r.MQ != nil {
		publisher = events.NewPublisher(r.MQ)
	}

	validator := services.NewProductValidator(units, products, lookups, decimal.NewFromFloat(r.Config.Catalog.TaxRateMax))
	return Services{
		Products: services.NewProductService(products, validator, publisher, r.Log),
		Units:    services.NewUnitService(units, publisher, r.Log),
		Lookups: services.NewLookupService(lookups, services.StoreSettings{
			Name:     r.Config.Store.Name,
			Logo:     r.Config.Store.Logo,
			Currency: r.Config.Store.Currency,
			Timezone: r.Config.Store.Timezone,
		}),
		Export: services.NewExportService(products),
	}
}

// HTTP builds the fiber application over s.
func (r *Runtime) HTTP(s Services) *fiber.App {
	paging := handlers.Paging{
		DefaultPerPage: r.Config.Catalog.DefaultPerPage,
		MaxPerPage:     r.Config.Catalog.MaxPerPage,
	}
	return server.NewApp(server.Deps{
		AppName:        r.Config.App.Name,
		Products:       handlers.NewProductHandler(s.Products, s.Export, paging, r.Log),
		Units:          handlers.NewUnitHandler(s.Units, r.Log),
		Lookups:        handlers.NewLookupHandler(s.Lookups, r.Log),
		MetricsEnabled: r.Config.Metrics.Enabled,
		RequestLog:     r.Config.App.Env == "dev",
		Log:            r.Log,
	})
}
