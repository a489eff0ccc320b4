package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all runtime settings. Values come from the environment,
// optionally seeded from a .env file.
type Config struct {
	Port          int
	PublicBaseURL string
	CORSOrigins   []string

	DBDriver string
	DBDSN    string

	ArtifactStore string
	ArtifactDir   string
	ScratchDir    string

	FetchTimeout  time.Duration
	BuildTTL      time.Duration
	SweepSchedule string

	LogLevel  string
	LogFormat string
}

const (
	StoreFilesystem = "filesystem"
	StoreDatabase   = "database"
)

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	dataDir := get("DATA_DIR", "./data")
	cfg := &Config{
		PublicBaseURL: strings.TrimRight(get("PUBLIC_BASE_URL", ""), "/"),
		DBDriver:      get("DB_DRIVER", "sqlite"),
		ArtifactStore: get("ARTIFACT_STORE", StoreFilesystem),
		ArtifactDir:   get("ARTIFACT_DIR", filepath.Join(dataDir, "artifacts")),
		ScratchDir:    get("SCRATCH_DIR", filepath.Join(os.TempDir(), "fhir-builder")),
		SweepSchedule: get("SWEEP_SCHEDULE", "@hourly"),
		LogLevel:      get("LOG_LEVEL", "info"),
		LogFormat:     get("LOG_FORMAT", "json"),
	}

	for _, o := range strings.Split(get("CORS_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	var err error
	if cfg.Port, err = strconv.Atoi(get("PORT", "1337")); err != nil || cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid PORT %q", getenv("PORT"))
	}
	if cfg.FetchTimeout, err = time.ParseDuration(get("FETCH_TIMEOUT", "10s")); err != nil || cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT %q", getenv("FETCH_TIMEOUT"))
	}
	if cfg.BuildTTL, err = time.ParseDuration(get("BUILD_TTL", "24h")); err != nil || cfg.BuildTTL <= 0 {
		return nil, fmt.Errorf("invalid BUILD_TTL %q", getenv("BUILD_TTL"))
	}

	switch cfg.DBDriver {
	case "sqlite":
		cfg.DBDSN = get("DB_DSN", filepath.Join(dataDir, "builder.db"))
	case "postgres":
		cfg.DBDSN = get("DB_DSN", "")
		if cfg.DBDSN == "" {
			cfg.DBDSN = "postgres://" +
				getenv("DB_USERNAME") + ":" +
				getenv("DB_PASSWORD") + "@" +
				getenv("DB_HOSTNAME") + "/" +
				getenv("DB_DBNAME") + "?search_path=" +
				getenv("DB_SCHEMA")
		}
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q (sqlite|postgres)", cfg.DBDriver)
	}

	switch cfg.ArtifactStore {
	case StoreFilesystem, StoreDatabase:
	default:
		return nil, fmt.Errorf("invalid ARTIFACT_STORE %q (filesystem|database)", cfg.ArtifactStore)
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger(out io.Writer) zerolog.Logger {
	if c.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "fhir-builder").Logger()
}
