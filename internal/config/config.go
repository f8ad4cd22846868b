// Package config assembles the service configuration tree from config.toml,
// an environment overlay, and UNDERWRITE_ environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/underwrite/internal/queue"
	"github.com/JaimeStill/underwrite/pkg/broker"
	"github.com/JaimeStill/underwrite/pkg/database"
	"github.com/JaimeStill/underwrite/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvUnderwriteEnv             = "UNDERWRITE_ENV"
	EnvUnderwriteShutdownTimeout = "UNDERWRITE_SHUTDOWN_TIMEOUT"
	EnvUnderwriteVersion         = "UNDERWRITE_VERSION"
)

var databaseEnv = &database.Env{
	URL:             "UNDERWRITE_DB_URL",
	Host:            "UNDERWRITE_DB_HOST",
	Port:            "UNDERWRITE_DB_PORT",
	Name:            "UNDERWRITE_DB_NAME",
	User:            "UNDERWRITE_DB_USER",
	Password:        "UNDERWRITE_DB_PASSWORD",
	SSLMode:         "UNDERWRITE_DB_SSL_MODE",
	MaxOpenConns:    "UNDERWRITE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "UNDERWRITE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "UNDERWRITE_DB_CONN_MAX_LIFETIME",
	ConnMaxIdleTime: "UNDERWRITE_DB_CONN_MAX_IDLE_TIME",
	ConnTimeout:     "UNDERWRITE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Enabled:          "UNDERWRITE_STORAGE_ENABLED",
	ContainerName:    "UNDERWRITE_STORAGE_CONTAINER_NAME",
	ConnectionString: "UNDERWRITE_STORAGE_CONNECTION_STRING",
}

var brokerEnv = &broker.Env{
	Enabled:     "UNDERWRITE_BROKER_ENABLED",
	Addr:        "UNDERWRITE_BROKER_ADDR",
	Password:    "UNDERWRITE_BROKER_PASSWORD",
	DB:          "UNDERWRITE_BROKER_DB",
	Queue:       "UNDERWRITE_BROKER_QUEUE",
	PoolSize:    "UNDERWRITE_BROKER_POOL_SIZE",
	DialTimeout: "UNDERWRITE_BROKER_DIAL_TIMEOUT",
}

var queueEnv = &queue.Env{
	SLABudget:         "UNDERWRITE_QUEUE_SLA_BUDGET",
	ApproachingWindow: "UNDERWRITE_QUEUE_APPROACHING_WINDOW",
	SweepSchedule:     "UNDERWRITE_QUEUE_SWEEP_SCHEDULE",
}

// Config is the root configuration for the Underwrite service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	Broker          broker.Config   `toml:"broker"`
	Queue           queue.Config    `toml:"queue"`
	API             APIConfig       `toml:"api"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the UNDERWRITE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvUnderwriteEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with config files resolved relative to dir.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{}

	base := dir + "/" + BaseConfigFile
	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(dir); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Broker.Merge(&overlay.Broker)
	c.Queue.Merge(&overlay.Queue)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Broker.Finalize(brokerEnv); err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	if err := c.Queue.Finalize(queueEnv); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvUnderwriteShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvUnderwriteVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvUnderwriteEnv); env != "" {
		path := dir + "/" + fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
