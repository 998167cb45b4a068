package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Unmarshal_WhenAllFieldsPresent_ThenPopulatesConfig(t *testing.T) {
	// Arrange
	configJSON := `{
		"topology_file": "site.hcl",
		"log_console_level": 1,
		"log_file_level": 2,
		"logs_dir": "./logs",
		"shutdown_timeout_seconds": 3,
		"tracing": true
	}`

	// Act
	var config Config
	err := json.Unmarshal([]byte(configJSON), &config)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "site.hcl", config.TopologyFile)
	assert.Equal(t, "./logs", config.LogsDir)
	assert.True(t, config.Tracing)
	assert.Equal(t, 3*time.Second, config.ShutdownTimeout())
}

func TestConfig_Validate_WhenValidConfig_ThenReturnsNil(t *testing.T) {
	// Arrange
	config := &Config{TopologyFile: "site.hcl", LogConsoleLevel: 1, LogFileLevel: 1}

	// Act
	err := config.Validate()

	// Assert
	assert.NoError(t, err)
}

func TestConfig_Validate_WhenTopologyFileEmpty_ThenReturnsError(t *testing.T) {
	// Arrange
	config := &Config{TopologyFile: "  "}

	// Act
	err := config.Validate()

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "'topology_file' field is required")
}

func TestConfig_Validate_WhenTopologyFileNotHCL_ThenReturnsError(t *testing.T) {
	// Arrange
	config := &Config{TopologyFile: "site.json"}

	// Act
	err := config.Validate()

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), ".hcl")
}

func TestConfig_Validate_WhenNegativeShutdownTimeout_ThenReturnsError(t *testing.T) {
	// Arrange
	config := &Config{TopologyFile: "site.hcl", ShutdownTimeoutSeconds: -1}

	// Act
	err := config.Validate()

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown_timeout_seconds")
}

func TestConfig_Validate_WhenLogLevelOutOfRange_ThenReturnsError(t *testing.T) {
	// Arrange
	config := &Config{TopologyFile: "site.hcl", LogConsoleLevel: 6}

	// Act
	err := config.Validate()

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "log_console_level must be between 0 and 5")
}

func TestConfig_ShutdownTimeout_WhenNotSet_ThenReturnsDefault(t *testing.T) {
	// Arrange
	config := &Config{}

	// Act
	timeout := config.ShutdownTimeout()

	// Assert
	assert.Equal(t, DefaultShutdownTimeout, timeout)
}
