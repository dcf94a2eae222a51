package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
)

const minSecretLen = 32

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	CatalogPath string `env:"CATALOG_PATH" envDefault:"data/catalog.csv"`
	CatalogDSN  string `env:"CATALOG_DSN"`

	JournalPath      string `env:"CART_JOURNAL_PATH" envDefault:"data/cart_journal.json"`
	ReconcileOnStart bool   `env:"RECONCILE_ON_START" envDefault:"true"`

	ReceiptDir   string `env:"RECEIPT_DIR" envDefault:"data/receipts"`
	ReceiptTitle string `env:"RECEIPT_TITLE" envDefault:"Purchase Receipt"`
	Currency     string `env:"CURRENCY_SYMBOL" envDefault:"Rp"`

	AssetDir string `env:"ASSET_DIR" envDefault:"images"`

	SessionSecret      string        `env:"SESSION_SECRET,required"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SessionLimitPerMin int           `env:"SESSION_LIMIT_PER_MIN" envDefault:"30"`
	SessionSweep       time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsToken   string `env:"METRICS_TOKEN"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.CatalogDSN == "" && c.CatalogPath == "" {
		return errors.New("CATALOG_PATH or CATALOG_DSN is required")
	}
	if len(c.SessionSecret) < minSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d chars", minSecretLen)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SessionSweep <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.SessionLimitPerMin <= 0 {
		return errors.New("SESSION_LIMIT_PER_MIN must be positive")
	}
	if c.ReceiptDir == "" {
		return errors.New("RECEIPT_DIR is required")
	}
	return nil
}

func (c Config) ReceiptPath(session string) string {
	return filepath.Join(c.ReceiptDir, "receipt-"+session+".pdf")
}

// Fields returns the configuration as log fields, secrets omitted.
func (c Config) Fields() []zap.Field {
	store := "file"
	if c.CatalogDSN != "" {
		store = "postgres"
	}
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("catalog_store", store),
		zap.String("catalog_path", c.CatalogPath),
		zap.String("journal_path", c.JournalPath),
		zap.Bool("reconcile_on_start", c.ReconcileOnStart),
		zap.String("receipt_dir", c.ReceiptDir),
		zap.String("asset_dir", c.AssetDir),
		zap.Duration("session_ttl", c.SessionTTL),
		zap.Duration("session_sweep", c.SessionSweep),
		zap.Bool("metrics_enabled", c.MetricsEnabled),
	}
}
