package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	DataDir     string            `yaml:"data_dir"`
	Listen      string            `yaml:"listen"`
	LogLevel    string            `yaml:"log_level"`
	Queue       QueueConfig       `yaml:"queue"`
	Worker      WorkerConfig      `yaml:"worker"`
	Notify      NotifyConfig      `yaml:"notify"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// QueueConfig controls job admission.
type QueueConfig struct {
	// MaxDepth bounds the queue; 0 means unbounded (enqueue never fails with
	// a full-queue error).
	MaxDepth int `yaml:"max_depth"`
}

// WorkerConfig controls job execution.
type WorkerConfig struct {
	// JobTimeout is the per-job handler deadline; empty or "0" disables it.
	JobTimeout string `yaml:"job_timeout"`
}

// NotifyConfig configures the optional out-of-process notification bridge.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// CatalogConfig points at the application catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
	// CacheDir holds working copies of git-sourced installer scripts.
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// MaintenanceConfig controls the periodic background schedule.
type MaintenanceConfig struct {
	LivenessInterval string `yaml:"liveness_interval"`
	AuditRetention   string `yaml:"audit_retention"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env/.env.local if present; process env always wins.
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("load %s: %w", envPath, err)
			}
			break
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./appdock-data"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:7600"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "appdock.state.changed"
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "catalog.yaml"
	}
	if c.Catalog.CacheDir == "" {
		c.Catalog.CacheDir = c.DataDir + "/scripts"
	}
	if c.Maintenance.LivenessInterval == "" {
		c.Maintenance.LivenessInterval = "30s"
	}
	if c.Maintenance.AuditRetention == "" {
		c.Maintenance.AuditRetention = "168h"
	}
}

// Validate checks cross-field constraints that YAML decoding cannot express.
func (c *Config) Validate() error {
	if c.Queue.MaxDepth < 0 {
		return fmt.Errorf("queue.max_depth must be >= 0, got %d", c.Queue.MaxDepth)
	}
	if _, err := c.JobTimeout(); err != nil {
		return fmt.Errorf("worker.job_timeout: %w", err)
	}
	if _, err := c.LivenessInterval(); err != nil {
		return fmt.Errorf("maintenance.liveness_interval: %w", err)
	}
	if _, err := c.AuditRetention(); err != nil {
		return fmt.Errorf("maintenance.audit_retention: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug|info|warn|error, got %q", c.LogLevel)
	}
	return nil
}

// JobTimeout parses the per-job handler deadline. Zero means disabled.
func (c *Config) JobTimeout() (time.Duration, error) {
	return parseOptionalDuration(c.Worker.JobTimeout)
}

// LivenessInterval parses the process liveness sweep interval.
func (c *Config) LivenessInterval() (time.Duration, error) {
	return parseOptionalDuration(c.Maintenance.LivenessInterval)
}

// AuditRetention parses how long completed job audit rows are kept.
func (c *Config) AuditRetention() (time.Duration, error) {
	return parseOptionalDuration(c.Maintenance.AuditRetention)
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}
	return d, nil
}
