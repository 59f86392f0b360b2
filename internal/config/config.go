// config.go — Environment-driven configuration. Unlike the CLI tool's
// defaults < global < project < env < flags cascade, a long-running
// broker process only has two layers: defaults and env vars (no config
// file cascade, no flag overrides — the process is meant to be driven
// by its deployment environment).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all resolved configuration values for the broker process.
type Config struct {
	DataBufferSize int           `json:"data_buffer_size"`
	LogBufferSize  int           `json:"log_buffer_size"`
	SessionTTL     time.Duration `json:"session_ttl"`
	MaxConnections int           `json:"max_connections"`
	WSPort         int           `json:"ws_port"`
	HTTPPort       int           `json:"http_port"`
	LogLevel       string        `json:"log_level"`
}

// Defaults returns the base configuration (spec §3: D=1000, L=50000).
func Defaults() Config {
	return Config{
		DataBufferSize: 1000,
		LogBufferSize:  50000,
		SessionTTL:     time.Hour,
		MaxConnections: 100,
		WSPort:         9999,
		HTTPPort:       8080,
		LogLevel:       "info",
	}
}

// Load builds the final configuration from defaults overridden by
// ANDROIDOSCOPY_-prefixed environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	loadEnvVars(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadEnvVars(cfg *Config) {
	if v := os.Getenv("ANDROIDOSCOPY_DATA_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DataBufferSize = n
		}
	}
	if v := os.Getenv("ANDROIDOSCOPY_LOG_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LogBufferSize = n
		}
	}
	if v := os.Getenv("ANDROIDOSCOPY_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}
	if v := os.Getenv("ANDROIDOSCOPY_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConnections = n
		}
	}
	if v := os.Getenv("ANDROIDOSCOPY_WS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WSPort = n
		}
	}
	if v := os.Getenv("ANDROIDOSCOPY_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTPPort = n
		}
	}
	if v := os.Getenv("ANDROIDOSCOPY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate checks that configuration values are within acceptable ranges.
func (c Config) Validate() error {
	if c.DataBufferSize < 1 {
		return fmt.Errorf("data_buffer_size must be >= 1, got %d", c.DataBufferSize)
	}
	if c.LogBufferSize < 1 {
		return fmt.Errorf("log_buffer_size must be >= 1, got %d", c.LogBufferSize)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be >= 1, got %d", c.MaxConnections)
	}
	if c.WSPort < 1 || c.WSPort > 65535 {
		return fmt.Errorf("ws_port must be 1-65535, got %d", c.WSPort)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be 1-65535, got %d", c.HTTPPort)
	}
	return nil
}
