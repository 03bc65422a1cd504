package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Stream     StreamConfig     `yaml:"stream"`
	Materials  MaterialsConfig  `yaml:"materials"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "postgres://" or "postgresql://" selects the
// Postgres driver; anything else is treated as an SQLite path.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig holds the two credential classes. The admin key guards
// configuration, emptying and exports; the ingest key guards event
// submission only. Bins may override the ingest key individually.
type AuthConfig struct {
	AdminKey  string `yaml:"admin_key"`
	IngestKey string `yaml:"ingest_key"`
}

// IngestConfig bounds event submission.
type IngestConfig struct {
	MaxWeightG       float64 `yaml:"max_weight_g"`
	RatePerMinute    int     `yaml:"rate_per_minute"`
	DefaultCapacityG float64 `yaml:"default_capacity_g"`
	AlertFillPercent float64 `yaml:"alert_fill_percent"`
}

// StreamConfig tunes the live-update stream.
type StreamConfig struct {
	SubscriberBuffer  int           `yaml:"subscriber_buffer"`
	KeepaliveSeconds  int           `yaml:"keepalive_seconds"`
	KeepaliveInterval time.Duration `yaml:"-"` // Ignored by YAML parser
}

// MaterialsConfig points at an optional CO2 factor file. When the path
// is empty the built-in factor table is used.
type MaterialsConfig struct {
	FactorsPath string `yaml:"factors_path"`
}

// PushConfig holds the VAPID keys for web push fill alerts. Leaving
// the keys empty disables the alert worker.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the alert worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills in defaults for unset or invalid fields. It is
// called by Load and exported so tests can build configs by hand.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 15
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "sorti.db"
	}

	if cfg.Ingest.MaxWeightG <= 0 {
		cfg.Ingest.MaxWeightG = 5000
	}
	if cfg.Ingest.RatePerMinute <= 0 {
		cfg.Ingest.RatePerMinute = 60
	}
	if cfg.Ingest.DefaultCapacityG <= 0 {
		cfg.Ingest.DefaultCapacityG = 10000
	}
	if cfg.Ingest.AlertFillPercent <= 0 {
		cfg.Ingest.AlertFillPercent = 80
	}

	if cfg.Stream.SubscriberBuffer <= 0 {
		cfg.Stream.SubscriberBuffer = 100
	}
	if cfg.Stream.KeepaliveSeconds <= 0 {
		cfg.Stream.KeepaliveSeconds = 15
	}
	cfg.Stream.KeepaliveInterval = time.Duration(cfg.Stream.KeepaliveSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
