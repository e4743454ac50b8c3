package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Blob      BlobConfig
	Yard      YardConfig
	Reporting ReportingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
}

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// BlobConfig selects the photo storage backend.
type BlobConfig struct {
	Driver string
	FSRoot string
}

// YardConfig carries physical yard parameters.
type YardConfig struct {
	// MaxCapacity is the number of stalls; zero disables occupancy tracking.
	MaxCapacity int
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	timeout, err := time.ParseDuration(getenvWithDefault("CUSTODYCORE_REQUEST_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CUSTODYCORE_REQUEST_TIMEOUT: %w", err)
	}
	capacity, err := strconv.Atoi(getenvWithDefault("CUSTODYCORE_YARD_CAPACITY", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid CUSTODYCORE_YARD_CAPACITY: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("CUSTODYCORE_PORT", "8080"),
			RequestTimeout: timeout,
		},
		Storage: StorageConfig{
			Driver:      getenvWithDefault("CUSTODYCORE_STORAGE_DRIVER", "sqlite"),
			SQLitePath:  getenvWithDefault("CUSTODYCORE_SQLITE_PATH", "custodycore.db"),
			PostgresDSN: os.Getenv("CUSTODYCORE_POSTGRES_DSN"),
		},
		Blob: BlobConfig{
			Driver: getenvWithDefault("CUSTODYCORE_BLOB_DRIVER", "fs"),
			FSRoot: getenvWithDefault("CUSTODYCORE_BLOB_FS_ROOT", "photodata"),
		},
		Yard: YardConfig{
			MaxCapacity: capacity,
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("CUSTODYCORE_RECONCILE_SCHEDULE", "0 3 * * *"),
			Timezone:     getenvWithDefault("CUSTODYCORE_TIMEZONE", "America/Sao_Paulo"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("CUSTODYCORE_PORT must be provided")
	}

	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("CUSTODYCORE_POSTGRES_DSN must be provided for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Yard.MaxCapacity < 0 {
		return errors.New("CUSTODYCORE_YARD_CAPACITY must not be negative")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("CUSTODYCORE_RECONCILE_SCHEDULE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
