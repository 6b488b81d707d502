package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Name string
		Env  string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Database struct {
		Driver     string
		DSN        string
		MaxRetries int           `mapstructure:"max_retries"`
		RetryDelay time.Duration `mapstructure:"retry_delay"`
	} `mapstructure:"database"`

	RabbitMQ struct {
		URL   string
		Queue string
	} `mapstructure:"rabbitmq"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Catalog struct {
		TaxRateMax     float64 `mapstructure:"tax_rate_max"`
		DefaultPerPage int     `mapstructure:"default_per_page"`
		MaxPerPage     int     `mapstructure:"max_per_page"`
	} `mapstructure:"catalog"`

	Store struct {
		Name     string
		Logo     string
		Currency string
		Timezone string
	} `mapstructure:"store"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "katalog")
	v.SetDefault("app.env", "prod")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "katalog.db")
	v.SetDefault("database.max_retries", 10)
	v.SetDefault("database.retry_delay", "5s")
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.queue", "catalog_events")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("catalog.tax_rate_max", 100)
	v.SetDefault("catalog.default_per_page", 15)
	v.SetDefault("catalog.max_per_page", 100)
	v.SetDefault("store.name", "Katalog")
	v.SetDefault("store.logo", "")
	v.SetDefault("store.currency", "TRY")
	v.SetDefault("store.timezone", "Europe/Istanbul")
}

// Load reads .env (if present), then the optional YAML file at path, then the
// environment. HTTP_ADDR overrides http.addr, DATABASE_DSN database.dsn and so on.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Catalog.TaxRateMax < 0 {
		return errors.New("catalog.tax_rate_max must not be negative")
	}
	if c.Catalog.DefaultPerPage < 1 || c.Catalog.MaxPerPage < c.Catalog.DefaultPerPage {
		return errors.New("catalog.max_per_page must be at least catalog.default_per_page, which must be positive")
	}
	return nil
}
