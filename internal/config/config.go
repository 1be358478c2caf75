// Package config loads runtime settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBigQuery = "bigquery"
)

// Config is the full runtime configuration shared by every command.
type Config struct {
	StoreDriver     string `validate:"oneof=postgres sqlite bigquery"`
	DatabaseURL     string `validate:"required_if=StoreDriver postgres"`
	SQLitePath      string `validate:"required_if=StoreDriver sqlite"`
	BigQueryProject string `validate:"required_if=StoreDriver bigquery"`
	BigQueryDataset string `validate:"required_if=StoreDriver bigquery"`

	// CategorySource is a local path or a gs:// or s3:// URI.
	CategorySource string `validate:"required"`

	Sync  SyncConfig
	Query QueryConfig
	Cache CacheConfig
	AWS   AWSConfig
	Log   LogConfig

	Port string `validate:"required,numeric"`
	// APIToken, when set, is required as a bearer token on /api routes.
	APIToken string

	NotionToken string
	NotionDBID  string
}

// SyncConfig tunes the upsert loop.
type SyncConfig struct {
	BatchSize          int           `validate:"min=1,max=1000"`
	Workers            int           `validate:"min=1,max=64"`
	Timeout            time.Duration `validate:"gt=0"`
	ErrorDetailLimit   int           `validate:"min=0"`
	LegacySub1Sentinel bool
}

// QueryConfig bounds read responses.
type QueryConfig struct {
	DefaultLimit int `validate:"min=1"`
}

// CacheConfig configures the optional Redis read cache. An empty URL disables it.
type CacheConfig struct {
	RedisURL string `validate:"omitempty,url"`
	TTL      time.Duration
}

// AWSConfig is used by the s3:// source.
type AWSConfig struct {
	Region    string
	Endpoint  string `validate:"omitempty,url"`
	PathStyle bool
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `validate:"omitempty,oneof=console json"`
}

// JSON reports whether logs should be written as JSON lines.
func (l LogConfig) JSON() bool {
	return l.Format == "json"
}

var validate = validator.New()

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = LoadDotEnv()
	return FromLookup(os.LookupEnv)
}

// LoadDotEnv copies .env from the working directory into the process
// environment without overriding variables that are already set.
func LoadDotEnv() error {
	return godotenv.Load()
}

// FromLookup builds a Config from an arbitrary key lookup and validates it.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	env := envReader{lookup: lookup}

	cfg := &Config{
		StoreDriver:     strings.ToLower(env.str("STORE_DRIVER", DriverSQLite)),
		DatabaseURL:     env.str("DATABASE_URL", ""),
		SQLitePath:      env.str("SQLITE_PATH", "category_data.db"),
		BigQueryProject: env.str("BIGQUERY_PROJECT", ""),
		BigQueryDataset: env.str("BIGQUERY_DATASET", ""),
		CategorySource:  env.str("CATEGORY_SOURCE", "data/categories.json"),
		Sync: SyncConfig{
			BatchSize:          env.int("SYNC_BATCH_SIZE", 100),
			Workers:            env.int("SYNC_WORKERS", 4),
			Timeout:            env.duration("SYNC_TIMEOUT", 10*time.Minute),
			ErrorDetailLimit:   env.int("SYNC_ERROR_DETAIL_LIMIT", 10),
			LegacySub1Sentinel: env.bool("SYNC_LEGACY_SUB1_SENTINEL", false),
		},
		Query: QueryConfig{
			DefaultLimit: env.int("QUERY_DEFAULT_LIMIT", 1000),
		},
		Cache: CacheConfig{
			RedisURL: env.str("REDIS_URL", ""),
			TTL:      env.duration("CACHE_TTL", 10*time.Minute),
		},
		AWS: AWSConfig{
			Region:    env.str("AWS_REGION", "us-east-1"),
			Endpoint:  env.str("AWS_S3_ENDPOINT", ""),
			PathStyle: env.bool("AWS_S3_PATH_STYLE", false),
		},
		Log: LogConfig{
			Level:  strings.ToLower(env.str("LOG_LEVEL", "info")),
			Format: strings.ToLower(env.str("LOG_FORMAT", "console")),
		},
		Port:        env.str("PORT", "8080"),
		APIToken:    env.str("API_TOKEN", ""),
		NotionToken: env.str("NOTION_TOKEN", ""),
		NotionDBID:  env.str("NOTION_DB_ID", ""),
	}

	if len(env.errs) > 0 {
		return nil, fmt.Errorf("config: parse environment: %w", errors.Join(env.errs...))
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// envReader collects parse errors so every bad key is reported at once.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (e *envReader) int(key string, fallback int) int {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e *envReader) bool(key string, fallback bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
