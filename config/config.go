/*
Package config loads runtime configuration from environment variables.

PURPOSE:
  One flat struct per concern, parsed with caarlos0/env. Every knob has a
  default that works for local development; production overrides via the
  environment only, never via files.

USAGE:
  cfg, err := config.Load()
  if err != nil {
      log.Fatal(err)
  }
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server         Server
	Database       Database
	Reconciliation Reconciliation
}

type Server struct {
	Host         string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`

	// CORSOrigins lists allowed browser origins. "*" for local development.
	CORSOrigins []string `env:"SERVER_CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Database struct {
	// Path is the SQLite database file; ":memory:" for ephemeral runs.
	Path string `env:"DATABASE_PATH" envDefault:"./data/rota.db"`
}

type Reconciliation struct {
	// GraceMargin is the tolerance after a slot's predicted start before the
	// tolerant pass records an absence.
	GraceMargin time.Duration `env:"RECONCILE_GRACE_MARGIN" envDefault:"30m"`

	// Nightly enables the background pass over yesterday's schedules.
	Nightly         bool          `env:"RECONCILE_NIGHTLY" envDefault:"true"`
	NightlyInterval time.Duration `env:"RECONCILE_NIGHTLY_INTERVAL" envDefault:"1h"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Reconciliation.GraceMargin < 0 {
		return nil, fmt.Errorf("grace margin must not be negative")
	}
	return cfg, nil
}
