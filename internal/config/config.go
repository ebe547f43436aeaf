// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration of the API process.
type Config struct {
	HTTPAddr    string   `env:"CONTROL_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr    string   `env:"CONTROL_GRPC_ADDR" envDefault:":9090"`
	PGDSN       string   `env:"CONTROL_PG_DSN"`
	DBMaxOpen   int      `env:"CONTROL_DB_MAX_OPEN" envDefault:"20"`
	LogLevel    string   `env:"CONTROL_LOG_LEVEL" envDefault:"info"`
	RateBurst   int      `env:"CONTROL_RATE_BURST" envDefault:"20"`
	RatePerSec  int      `env:"CONTROL_RATE_PER_SEC" envDefault:"10"`
	CORSOrigins []string `env:"CONTROL_CORS_ORIGINS" envSeparator:","`

	Auth AuthConfig
	Mail MailConfig
}

// AuthConfig drives session and reset tokens.
type AuthConfig struct {
	Secret     string        `env:"CONTROL_AUTH_SECRET,required"`
	Issuer     string        `env:"CONTROL_AUTH_ISSUER" envDefault:"control"`
	SessionTTL time.Duration `env:"CONTROL_SESSION_TTL" envDefault:"1h"`
	ResetTTL   time.Duration `env:"CONTROL_RESET_TTL" envDefault:"30m"`
	ResetURL   string        `env:"CONTROL_RESET_URL" envDefault:"http://localhost:8080/password/define"`
}

// MailConfig selects the SMTP relay; an empty Host means mails are only logged.
type MailConfig struct {
	Host     string `env:"CONTROL_SMTP_HOST"`
	Port     int    `env:"CONTROL_SMTP_PORT" envDefault:"587"`
	User     string `env:"CONTROL_SMTP_USER"`
	Password string `env:"CONTROL_SMTP_PASSWORD"`
	From     string `env:"CONTROL_SMTP_FROM" envDefault:"no-reply@digytal.com.br"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints the tags cannot express.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("CONTROL_AUTH_SECRET is empty")
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.ResetTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		return errors.New("rate limit values must be positive")
	}
	if c.DBMaxOpen <= 0 {
		return errors.New("CONTROL_DB_MAX_OPEN must be positive")
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		return errors.New("CONTROL_SMTP_FROM is required when CONTROL_SMTP_HOST is set")
	}
	return nil
}

// MailEnabled reports whether an SMTP relay is configured.
func (c Config) MailEnabled() bool { return c.Mail.Host != "" }
