// Package config loads brook-server settings from BROOK_* environment
// variables, overridden by command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/brooksh/brook/internal/logging"
	"github.com/brooksh/brook/internal/server/token"
)

// Profile store backends
const (
	ProfileBackendSQLite = "sqlite"
	ProfileBackendMemory = "memory"
)

// Session store backends
const (
	SessionBackendBolt   = "bolt"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Access token modes
const (
	TokenModeOpaque = "opaque"
	TokenModeJWT    = "jwt"
)

// Config holds runtime settings for the server
type Config struct {
	HTTPAddr        string        `env:"BROOK_HTTP_ADDR" envDefault:":8080"`
	DBPath          string        `env:"BROOK_DB_PATH" envDefault:"brook.db"`
	ProfileBackend  string        `env:"BROOK_PROFILE_BACKEND" envDefault:"sqlite"`
	SessionBackend  string        `env:"BROOK_SESSION_BACKEND" envDefault:"bolt"`
	SessionDBPath   string        `env:"BROOK_SESSION_DB_PATH" envDefault:"brook-sessions.db"`
	RedisAddr       string        `env:"BROOK_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"BROOK_REDIS_PASSWORD"`
	TokenMode       string        `env:"BROOK_TOKEN_MODE" envDefault:"opaque"`
	JWTSecret       string        `env:"BROOK_JWT_SECRET"`
	LogLevel        string        `env:"BROOK_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"BROOK_LOG_FORMAT" envDefault:"json"`
	OTelEndpoint    string        `env:"BROOK_OTEL_ENDPOINT"`
	RedisDB         int           `env:"BROOK_REDIS_DB" envDefault:"0"`
	RateLimit       int           `env:"BROOK_RATE_LIMIT" envDefault:"20"`
	RateWindow      time.Duration `env:"BROOK_RATE_WINDOW" envDefault:"1m"`
	TokenTTL        time.Duration `env:"BROOK_TOKEN_TTL" envDefault:"24h"`
	SweepInterval   time.Duration `env:"BROOK_SWEEP_INTERVAL" envDefault:"10m"`
	ShutdownTimeout time.Duration `env:"BROOK_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	TrustProxy      bool          `env:"BROOK_TRUST_PROXY" envDefault:"false"`
	ShowVersion     bool
}

// Load reads the environment, applies flag overrides from args (without
// the program name) and validates the result.
func Load(args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.parseFlags(args, output); err != nil {
		return nil, err
	}

	if cfg.ShowVersion {
		return cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parseFlags(args []string, output io.Writer) error {
	fs := flag.NewFlagSet("brook-server", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.BoolVar(&c.ShowVersion, "version", false, "show version information")
	fs.StringVar(&c.HTTPAddr, "addr", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "sqlite database path")
	fs.StringVar(&c.ProfileBackend, "profiles", c.ProfileBackend, "profile store: sqlite or memory")
	fs.StringVar(&c.SessionBackend, "sessions", c.SessionBackend, "session store: bolt, redis or memory")
	fs.StringVar(&c.SessionDBPath, "session-db", c.SessionDBPath, "bbolt session database path")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "redis address")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "redis database number")
	fs.StringVar(&c.TokenMode, "tokens", c.TokenMode, "access tokens: opaque or jwt")
	fs.DurationVar(&c.TokenTTL, "token-ttl", c.TokenTTL, "access token lifetime")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: json or text")
	fs.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "auth requests per client per window")
	fs.DurationVar(&c.RateWindow, "rate-window", c.RateWindow, "rate limit window")
	fs.BoolVar(&c.TrustProxy, "trust-proxy", c.TrustProxy, "rate limit by X-Forwarded-For; only behind a reverse proxy")
	fs.DurationVar(&c.SweepInterval, "sweep-interval", c.SweepInterval, "expired session sweep interval")
	fs.StringVar(&c.OTelEndpoint, "otel-endpoint", c.OTelEndpoint, "OTLP/HTTP trace endpoint, empty disables tracing")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}

	switch c.ProfileBackend {
	case ProfileBackendSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("db path is required for the sqlite profile store"))
		}
	case ProfileBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown profile backend %q", c.ProfileBackend))
	}

	switch c.SessionBackend {
	case SessionBackendBolt:
		if c.SessionDBPath == "" {
			errs = append(errs, errors.New("session db path is required for the bolt session store"))
		}
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required for the redis session store"))
		}
	case SessionBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.SessionBackend))
	}

	switch c.TokenMode {
	case TokenModeOpaque:
	case TokenModeJWT:
		if len(c.JWTSecret) < token.MinJWTSecretLen {
			errs = append(errs, fmt.Errorf("jwt secret must be at least %d bytes", token.MinJWTSecretLen))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown token mode %q", c.TokenMode))
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != logging.FormatJSON && c.LogFormat != logging.FormatText {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		errs = append(errs, errors.New("rate limit and window must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive"))
	}

	return errors.Join(errs...)
}
