package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	DBSource string `env:"DB_SOURCE"`
	Port     string `env:"SERVER_PORT" envDefault:"8080"`
	Env      string `env:"ENVIRONMENT" envDefault:"development"`
	Backend  string `env:"STORAGE_BACKEND" envDefault:"postgres"`

	ResolverInterval time.Duration `env:"RESOLVER_INTERVAL" envDefault:"1m"`

	RentPerByteYear    int64 `env:"RENT_LAMPORTS_PER_BYTE_YEAR" envDefault:"3480"`
	RentExemptionYears int64 `env:"RENT_EXEMPTION_YEARS" envDefault:"2"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.Backend {
	case BackendPostgres:
		if cfg.DBSource == "" {
			return nil, fmt.Errorf("DB_SOURCE environment variable is required")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}
	if cfg.RentPerByteYear < 0 || cfg.RentExemptionYears < 0 {
		return nil, fmt.Errorf("rent parameters must not be negative")
	}
	return &cfg, nil
}

// Production reports whether the server runs with real money. Account
// minting is refused there.
func (c *Config) Production() bool {
	return c.Env == "production"
}
