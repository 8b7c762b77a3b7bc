// Package config loads server configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	Addr    string `env:"VODNIK_ADDR" envDefault:":8080"`
	Backend string `env:"VODNIK_BACKEND" envDefault:"sqlite"`

	SQLitePath string `env:"VODNIK_SQLITE_PATH" envDefault:"vodnik.db"`

	RedisAddr string `env:"VODNIK_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"VODNIK_REDIS_DB" envDefault:"0"`

	DatabaseURL string `env:"VODNIK_DATABASE_URL"`

	DynamoDBEndpoint   string `env:"VODNIK_DYNAMODB_ENDPOINT"`
	DynamoDBRegion     string `env:"VODNIK_DYNAMODB_REGION" envDefault:"us-east-1"`
	DynamoDBItemsTable string `env:"VODNIK_DYNAMODB_ITEMS_TABLE" envDefault:"vodnik-items"`
	DynamoDBUsersTable string `env:"VODNIK_DYNAMODB_USERS_TABLE" envDefault:"vodnik-users"`

	TicketmasterAPIKey string `env:"TICKETMASTER_API_KEY"`
	TicketmasterURL    string `env:"TICKETMASTER_URL" envDefault:"https://app.ticketmaster.com"`
	TicketmasterRadius int    `env:"TICKETMASTER_RADIUS" envDefault:"50"`

	JWTSecret   string        `env:"VODNIK_JWT_SECRET"`
	TokenTTL    time.Duration `env:"VODNIK_TOKEN_TTL" envDefault:"24h"`
	CORSOrigins []string      `env:"VODNIK_CORS_ORIGINS" envSeparator:","`

	LogPath  string `env:"VODNIK_LOG_PATH"`
	LogLevel string `env:"VODNIK_LOG_LEVEL" envDefault:"info"`
	LogColor bool   `env:"VODNIK_LOG_COLOR"`

	// EnvFile is the .env file Load read, if any.
	EnvFile string
}

// Load reads envFile into the process environment when it exists, then
// parses the environment. A missing envFile is not an error; EnvFile is
// set only when the file was loaded.
func Load(envFile string) (*Config, error) {
	loaded := ""
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("loading %s: %w", envFile, err)
			}
		} else {
			loaded = envFile
		}
	}

	cfg, err := parse(env.Options{})
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = loaded
	return cfg, nil
}

// FromMap parses configuration from environ instead of the process
// environment.
func FromMap(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the backend name and its required settings.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("VODNIK_SQLITE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("VODNIK_REDIS_ADDR is required for the redis backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("VODNIK_DATABASE_URL is required for the postgres backend")
		}
	case BackendDynamoDB:
		if c.DynamoDBItemsTable == "" || c.DynamoDBUsersTable == "" {
			return errors.New("dynamodb table names must not be empty")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.TicketmasterRadius <= 0 {
		return fmt.Errorf("TICKETMASTER_RADIUS must be positive, got %d", c.TicketmasterRadius)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("VODNIK_TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
