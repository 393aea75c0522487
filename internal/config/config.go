package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/rl1809/inventory/internal/adapter/catalog"
	"github.com/rl1809/inventory/internal/adapter/storage"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR"   envDefault:":8080"`
	GRPCAddr    string `env:"GRPC_ADDR"   envDefault:":50051"`

	// Catalog service
	CatalogBaseURL      string        `env:"CATALOG_BASE_URL"       envDefault:"http://localhost:8081"`
	CatalogAPIKey       string        `env:"CATALOG_API_KEY,required"`
	CatalogAPIKeyHeader string        `env:"CATALOG_API_KEY_HEADER" envDefault:"X-API-KEY"`
	CatalogTimeout      time.Duration `env:"CATALOG_TIMEOUT"        envDefault:"5s"`
	CatalogRetryInitial time.Duration `env:"CATALOG_RETRY_INITIAL"  envDefault:"1s"`
	CatalogRetryMax     time.Duration `env:"CATALOG_RETRY_MAX"      envDefault:"3s"`
	CatalogRetryCount   int           `env:"CATALOG_RETRY_COUNT"    envDefault:"2"`

	// Stock store
	StockBackend         string `env:"STOCK_BACKEND"          envDefault:"mysql"`
	MySQLDSN             string `env:"MYSQL_DSN"              envDefault:"root:root@tcp(localhost:3306)/inventory?parseTime=true"`
	SQLitePath           string `env:"SQLITE_PATH"            envDefault:"inventory.db"`
	RedisAddr            string `env:"REDIS_ADDR"             envDefault:"localhost:6379"`
	StoreConflictRetries int    `env:"STORE_CONFLICT_RETRIES" envDefault:"5"`

	OtelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StockBackend {
	case storage.BackendMySQL, storage.BackendSQLite, storage.BackendRedis, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown STOCK_BACKEND %q", c.StockBackend)
	}
	if c.CatalogRetryCount < 0 {
		return errors.New("CATALOG_RETRY_COUNT must be >= 0")
	}
	if c.CatalogRetryInitial <= 0 || c.CatalogRetryInitial > c.CatalogRetryMax {
		return errors.New("CATALOG_RETRY_INITIAL must be positive and not exceed CATALOG_RETRY_MAX")
	}
	if c.StoreConflictRetries < 0 {
		return errors.New("STORE_CONFLICT_RETRIES must be >= 0")
	}
	return nil
}

func (c *Config) Catalog() catalog.Config {
	return catalog.Config{
		BaseURL:      c.CatalogBaseURL,
		APIKey:       c.CatalogAPIKey,
		APIKeyHeader: c.CatalogAPIKeyHeader,
		Timeout:      c.CatalogTimeout,
		InitialDelay: c.CatalogRetryInitial,
		MaxDelay:     c.CatalogRetryMax,
		MaxRetries:   c.CatalogRetryCount,
	}
}

func (c *Config) Store() storage.Options {
	return storage.Options{
		Backend:    c.StockBackend,
		MySQLDSN:   c.MySQLDSN,
		SQLitePath: c.SQLitePath,
		RedisAddr:  c.RedisAddr,
	}
}
