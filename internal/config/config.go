// Package config loads the application configuration from environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/Felix251/marketplace/pkg/config"
)

// Config holds all configuration for the marketplace server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort     int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"marketplace"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"marketplace_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"marketplace_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cache TTLs
	CacheDefaultTTL    time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"10m"`
	CacheProductTTL    time.Duration `env:"CACHE_PRODUCT_TTL" envDefault:"1h"`
	CacheCategoryTTL   time.Duration `env:"CACHE_CATEGORY_TTL" envDefault:"12h"`
	CacheUserTTL       time.Duration `env:"CACHE_USER_TTL" envDefault:"15m"`
	CacheStoreTTL      time.Duration `env:"CACHE_STORE_TTL" envDefault:"30m"`

	// Elasticsearch
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	SearchIndexName    string `env:"SEARCH_INDEX_NAME" envDefault:"products"`
	SearchRepairBuffer int    `env:"SEARCH_REPAIR_BUFFER" envDefault:"256"`

	// Authentication
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
	JWTLeeway     time.Duration `env:"JWT_LEEWAY" envDefault:"30s"`
	JWTHeader     string        `env:"JWT_HEADER" envDefault:"Authorization"`
	JWTPrefix     string        `env:"JWT_PREFIX" envDefault:"Bearer "`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"12"`

	// Checkout pricing
	TaxRate     string `env:"TAX_RATE" envDefault:"0.0825"`
	ShippingFee string `env:"SHIPPING_FEE" envDefault:"5.99"`

	// Payment providers
	StripeAPIKey       string `env:"STRIPE_API_KEY" envDefault:""`
	PayPalClientID     string `env:"PAYPAL_CLIENT_ID" envDefault:""`
	PayPalClientSecret string `env:"PAYPAL_CLIENT_SECRET" envDefault:""`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if _, _, err := c.Pricing(); err != nil {
		return err
	}
	if c.Environment != "development" && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// RedisAddr returns the Redis address string.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Pricing parses the tax rate and shipping fee.
func (c *Config) Pricing() (taxRate, shippingFee decimal.Decimal, err error) {
	taxRate, err = decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid TAX_RATE %q: %w", c.TaxRate, err)
	}
	shippingFee, err = decimal.NewFromString(c.ShippingFee)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid SHIPPING_FEE %q: %w", c.ShippingFee, err)
	}
	return taxRate, shippingFee, nil
}
