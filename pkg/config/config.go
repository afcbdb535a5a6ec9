package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	GRPCPort int `env:"GRPC_PORT" envDefault:"8081"`
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	Cart    Cart
	Catalog Catalog

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type Cart struct {
	APIBaseURL      string        `env:"CART_API_BASE_URL" envDefault:"http://localhost:3333"`
	APITimeout      time.Duration `env:"CART_API_TIMEOUT" envDefault:"5s"`
	ProductCacheTTL time.Duration `env:"CART_PRODUCT_CACHE_TTL" envDefault:"0s"`

	Storage    string `env:"CART_STORAGE" envDefault:"memory"`
	StorageKey string `env:"CART_STORAGE_KEY" envDefault:"@RocketShoes:cart"`
	SQLitePath string `env:"CART_SQLITE_PATH" envDefault:"data/cart.db"`
	RedisAddr  string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	NotifyAMQPURL string `env:"CART_NOTIFY_AMQP_URL"`
	Debug         bool   `env:"CART_DEBUG" envDefault:"false"`
}

type Catalog struct {
	HTTPPort   int    `env:"CATALOG_HTTP_PORT" envDefault:"3333"`
	SQLitePath string `env:"CATALOG_SQLITE_PATH" envDefault:"data/catalog.db"`
	SeedPath   string `env:"CATALOG_SEED_PATH"`
}

// Load parses the environment. Unparseable values are an error rather than
// silently falling back to defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Cart.Storage = strings.ToLower(strings.TrimSpace(cfg.Cart.Storage))
	switch cfg.Cart.Storage {
	case StorageMemory, StorageSQLite, StorageRedis:
	default:
		return Config{}, fmt.Errorf("CART_STORAGE must be memory, sqlite or redis, got %q", cfg.Cart.Storage)
	}
	if cfg.Cart.APITimeout < 0 || cfg.Cart.ProductCacheTTL < 0 {
		return Config{}, fmt.Errorf("cart durations must not be negative")
	}
	return cfg, nil
}
