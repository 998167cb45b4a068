package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topology = `
web_container {
  connector {
    host = "127.0.0.1"
    port = 0
  }

  context "/" {
    servlet "/health" {
      class = "health"
    }
  }
}
`

func writeConfig(t *testing.T, topologySource string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.hcl"), []byte(topologySource), 0o644))
	config := NewServerBootstrapper().CreateDefaultConfig()
	config.TopologyFile = "site.hcl"
	config.LogsDir = filepath.Join(dir, "logs")
	content, err := json.Marshal(config)
	require.NoError(t, err)
	configFile := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(configFile, content, 0o644))
	return configFile
}

func TestServerBootstrapper_BuildContainer_WhenCalled_ThenReturnsValidContainer(t *testing.T) {
	// Arrange
	bootstrapper := NewServerBootstrapper()

	// Act
	container := bootstrapper.BuildContainer()

	// Assert
	assert.NotNil(t, container)
	assert.NotNil(t, container.Resolver())
	assert.NotNil(t, container.Register())
}

func TestServerBootstrapper_CreateDefaultConfig_WhenCalled_ThenReturnsValidDefaults(t *testing.T) {
	// Arrange
	bootstrapper := &ServerBootstrapper{}

	// Act
	config := bootstrapper.CreateDefaultConfig()

	// Assert
	require.NoError(t, config.Validate())
	assert.Equal(t, "webcontainer.hcl", config.TopologyFile)
	assert.Equal(t, domain.DefaultShutdownTimeout, config.ShutdownTimeout())
}

func TestValidateCommand_WhenTopologyIsValid_ThenPrintsSuccess(t *testing.T) {
	// Arrange
	configFile := writeConfig(t, topology)
	root := newRootCommand(NewServerBootstrapper())
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"validate", "--config", configFile})

	// Act
	err := root.Execute()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Configuration is valid\n", out.String())
}

func TestValidateCommand_WhenTopologyIsInvalid_ThenReturnsError(t *testing.T) {
	// Arrange
	configFile := writeConfig(t, `web_container { port = 70000 }`)

	// Act
	err := execute(context.Background(), NewServerBootstrapper(), []string{"validate", "--config", configFile})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestRootCommand_WhenConfigFlagMissing_ThenReturnsError(t *testing.T) {
	// Act
	err := execute(context.Background(), NewServerBootstrapper(), []string{"validate"})

	// Assert
	assert.ErrorContains(t, err, "config")
}

func TestRunCommand_WhenContextEnds_ThenStopsCleanly(t *testing.T) {
	// Arrange
	configFile := writeConfig(t, topology)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Act
	err := execute(ctx, NewServerBootstrapper(), []string{"run", "--config", configFile})

	// Assert
	assert.NoError(t, err)
}
