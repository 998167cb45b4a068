package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/janmbaco/go-infrastructure/v2/logs"
)

// DefaultShutdownTimeout bounds the graceful shutdown of a running topology.
const DefaultShutdownTimeout = 10 * time.Second

// Config defines the configuration for the web container
type Config struct {
	TopologyFile           string        `json:"topology_file"`
	LogConsoleLevel        logs.LogLevel `json:"log_console_level"`
	LogFileLevel           logs.LogLevel `json:"log_file_level"`
	LogsDir                string        `json:"logs_dir"`
	ShutdownTimeoutSeconds int           `json:"shutdown_timeout_seconds"`
	Tracing                bool          `json:"tracing"`
}

// ShutdownTimeout returns the configured shutdown timeout or its default.
func (c *Config) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return DefaultShutdownTimeout
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TopologyFile) == "" {
		return errors.New("'topology_file' field is required and cannot be empty")
	}

	if !strings.HasSuffix(c.TopologyFile, ".hcl") {
		return errors.New("'topology_file' must be an .hcl file")
	}

	if c.ShutdownTimeoutSeconds < 0 {
		return errors.New("'shutdown_timeout_seconds' cannot be negative")
	}

	// Validate log levels
	if c.LogConsoleLevel < 0 || c.LogConsoleLevel > 5 {
		return errors.New("log_console_level must be between 0 and 5")
	}
	if c.LogFileLevel < 0 || c.LogFileLevel > 5 {
		return errors.New("log_file_level must be between 0 and 5")
	}

	return nil
}
