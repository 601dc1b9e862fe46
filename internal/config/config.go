// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aristath/horizon/internal/modules/analytics"
)

// Cache backends
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

// Config holds application configuration
type Config struct {
	DataDir  string `yaml:"data_dir"` // Base directory for all databases (always absolute)
	LogLevel string `yaml:"log_level"`
	Port     int    `yaml:"port"`
	DevMode  bool   `yaml:"dev_mode"`

	Cache      CacheConfig      `yaml:"cache"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Simulation SimulationConfig `yaml:"simulation"`
	Backup     BackupConfig     `yaml:"backup"`

	// Analytics holds the defaults applied to every report and simulation
	Analytics analytics.Params `yaml:"analytics"`
}

// CacheConfig selects and tunes the price and result cache
type CacheConfig struct {
	Backend         string        `yaml:"backend"` // sqlite or redis
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	PriceTTL        time.Duration `yaml:"price_ttl"`
	ReportTTL       time.Duration `yaml:"report_ttl"`
	CleanupSchedule string        `yaml:"cleanup_schedule"`
}

// FetchConfig bounds the price source fan-out
type FetchConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	RatePerMinute int           `yaml:"rate_per_minute"`
	Timeout       time.Duration `yaml:"timeout"`
}

// SimulationConfig sizes the Monte Carlo worker pool; 0 uses every CPU
type SimulationConfig struct {
	Workers int `yaml:"workers"`
}

// BackupConfig configures database backups to S3-compatible storage.
// Backups are disabled while Bucket is empty.
type BackupConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Schedule        string `yaml:"schedule"`
	Retention       int    `yaml:"retention"` // backups kept, 0 keeps all
}

// Enabled reports whether backups are configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		DataDir:  "./data",
		LogLevel: "info",
		Port:     8001,
		Cache: CacheConfig{
			Backend:         CacheBackendSQLite,
			PriceTTL:        6 * time.Hour,
			ReportTTL:       15 * time.Minute,
			CleanupSchedule: "0 0 3 * * *", // daily at 03:00
		},
		Fetch: FetchConfig{
			Concurrency:   4,
			RatePerMinute: 60,
			Timeout:       30 * time.Second,
		},
		Backup: BackupConfig{
			Prefix:    "horizon",
			Region:    "auto",
			Schedule:  "0 30 2 * * *", // daily at 02:30
			Retention: 14,
		},
		Analytics: analytics.DefaultParams(),
	}
}

// Load reads configuration: defaults, then the optional YAML file named by
// HORIZON_CONFIG, then environment variables (a .env file is loaded first).
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Defaults()

	if path := getEnv("HORIZON_CONFIG", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	cfg.DataDir = absDataDir

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// loadFile overlays a YAML file; absent keys keep their current values
func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("HORIZON_DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Port = getEnvAsInt("HORIZON_PORT", c.Port)
	c.DevMode = getEnvAsBool("DEV_MODE", c.DevMode)

	c.Cache.Backend = getEnv("HORIZON_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.RedisAddr = getEnv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getEnv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getEnvAsInt("REDIS_DB", c.Cache.RedisDB)
	c.Cache.PriceTTL = getEnvAsDuration("HORIZON_CACHE_TTL", c.Cache.PriceTTL)
	c.Cache.ReportTTL = getEnvAsDuration("HORIZON_REPORT_TTL", c.Cache.ReportTTL)
	c.Cache.CleanupSchedule = getEnv("HORIZON_CACHE_CLEANUP_SCHEDULE", c.Cache.CleanupSchedule)

	c.Fetch.Concurrency = getEnvAsInt("HORIZON_FETCH_CONCURRENCY", c.Fetch.Concurrency)
	c.Fetch.RatePerMinute = getEnvAsInt("HORIZON_FETCH_RATE_PER_MINUTE", c.Fetch.RatePerMinute)
	c.Fetch.Timeout = getEnvAsDuration("HORIZON_FETCH_TIMEOUT", c.Fetch.Timeout)

	c.Simulation.Workers = getEnvAsInt("HORIZON_SIMULATION_WORKERS", c.Simulation.Workers)

	c.Backup.Bucket = getEnv("HORIZON_BACKUP_BUCKET", c.Backup.Bucket)
	c.Backup.Endpoint = getEnv("HORIZON_BACKUP_ENDPOINT", c.Backup.Endpoint)
	c.Backup.Region = getEnv("HORIZON_BACKUP_REGION", c.Backup.Region)
	c.Backup.AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", c.Backup.AccessKeyID)
	c.Backup.SecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", c.Backup.SecretAccessKey)
	c.Backup.Schedule = getEnv("HORIZON_BACKUP_SCHEDULE", c.Backup.Schedule)
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data directory is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	switch c.Cache.Backend {
	case CacheBackendSQLite:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("redis cache backend requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch concurrency must be at least 1, got %d", c.Fetch.Concurrency)
	}
	if c.Fetch.RatePerMinute < 0 {
		return fmt.Errorf("fetch rate must not be negative, got %d", c.Fetch.RatePerMinute)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("simulation workers must not be negative, got %d", c.Simulation.Workers)
	}

	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics defaults: %w", err)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
