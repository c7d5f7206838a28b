package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"storefront/internal/money"
)

const EnvPrefix = "STOREFRONT"

type Config struct {
	Port      string `envconfig:"PORT" default:"8081"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile   string `envconfig:"LOG_FILE"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // json | console

	DBDriver       string `envconfig:"DB_DRIVER" default:"sqlite"` // sqlite | postgres
	DBDSN          string `envconfig:"DB_DSN" default:"storefront.db"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	AutoMigrate    bool   `envconfig:"AUTO_MIGRATE" default:"true"`
	SeedDemo       bool   `envconfig:"SEED_DEMO" default:"true"`

	CartBackend string        `envconfig:"CART_BACKEND" default:"sql"` // sql | redis
	RedisURL    string        `envconfig:"REDIS_URL"`
	CartTTL     time.Duration `envconfig:"CART_TTL" default:"72h"`
	Notifier    string        `envconfig:"NOTIFIER" default:"log"` // log | redis

	TaxRate            string `envconfig:"TAX_RATE" default:"0.08"`
	ShippingPolicy     string `envconfig:"SHIPPING_POLICY" default:"tiered"` // fixed | threshold | tiered
	ShippingFee        string `envconfig:"SHIPPING_FEE" default:"5.00"`
	ShippingFreeOver   string `envconfig:"SHIPPING_FREE_OVER" default:"100.00"`
	ShippingExpressFee string `envconfig:"SHIPPING_EXPRESS_FEE" default:"15.00"`

	CookieSecure bool `envconfig:"COOKIE_SECURE" default:"false"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.CartBackend {
	case "sql":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("CART_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown CART_BACKEND %q", c.CartBackend)
	}
	switch c.Notifier {
	case "log":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("NOTIFIER=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}
	if _, err := c.Tax(); err != nil {
		return err
	}
	if _, err := c.Shipping(); err != nil {
		return err
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c Config) UsesRedis() bool {
	return c.CartBackend == "redis" || c.Notifier == "redis"
}

func (c Config) Tax() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("TAX_RATE: %w", err)
	}
	if err := money.ValidateTaxRate(rate); err != nil {
		return decimal.Zero, fmt.Errorf("TAX_RATE: %w", err)
	}
	return rate, nil
}

// Shipping builds the tiered shipping table from config. With SHIPPING_POLICY
// fixed or threshold, express costs a flat SHIPPING_FEE and is never waived;
// SHIPPING_EXPRESS_FEE only applies to tiered.
func (c Config) Shipping() (money.Tiered, error) {
	fee, err := nonNegative("SHIPPING_FEE", c.ShippingFee)
	if err != nil {
		return money.Tiered{}, err
	}
	freeOver, err := nonNegative("SHIPPING_FREE_OVER", c.ShippingFreeOver)
	if err != nil {
		return money.Tiered{}, err
	}
	express, err := nonNegative("SHIPPING_EXPRESS_FEE", c.ShippingExpressFee)
	if err != nil {
		return money.Tiered{}, err
	}

	switch strings.ToLower(c.ShippingPolicy) {
	case "fixed":
		return money.Tiered{Standard: money.FixedFee{Fee: fee}, Express: fee}, nil
	case "threshold":
		std := money.ThresholdWaived{Fee: fee, FreeOver: freeOver}
		return money.Tiered{Standard: std, Express: fee}, nil
	case "tiered":
		std := money.ThresholdWaived{Fee: fee, FreeOver: freeOver}
		return money.Tiered{Standard: std, Express: express}, nil
	}
	return money.Tiered{}, fmt.Errorf("unknown SHIPPING_POLICY %q", c.ShippingPolicy)
}

func nonNegative(key, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}
