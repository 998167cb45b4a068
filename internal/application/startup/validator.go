package startup

import (
	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/domain"

	fileConfigResolver "github.com/janmbaco/go-infrastructure/v2/configuration/fileconfig/ioc/resolver"
)

type ConfigValidator struct{}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Validate checks the configuration and the topology it names without building anything.
func (cv *ConfigValidator) Validate(container dependencyinjection.Container, configFile string, topologyFile string, defaultConfig *domain.Config) error {
	configHandler := fileConfigResolver.GetFileConfigHandler(
		container.Resolver(),
		configFile,
		defaultConfig,
	)

	config, err := effectiveConfig(configHandler, configFile, topologyFile)
	if err != nil {
		return err
	}
	_, err = LoadTopology(container.Resolver(), config)
	return err
}
