package startup

import (
	"fmt"
	"path/filepath"

	"github.com/janmbaco/go-infrastructure/v2/configuration"
	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/application/builder"
	"github.com/janmbaco/go-webcontainer/internal/domain"
	infrastructureResolver "github.com/janmbaco/go-webcontainer/internal/infrastructure/ioc/resolver"
	presentationResolver "github.com/janmbaco/go-webcontainer/internal/presentation/ioc/resolver"
)

// effectiveConfig applies the topology override to a copy of the loaded config.
// A relative topology file in the config is taken from the config file's directory.
func effectiveConfig(configHandler configuration.ConfigHandler, configFile string, topologyOverride string) (*domain.Config, error) {
	loaded, ok := configHandler.GetConfig().(*domain.Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type %T", configHandler.GetConfig())
	}
	config := *loaded
	switch {
	case topologyOverride != "":
		config.TopologyFile = topologyOverride
	case config.TopologyFile != "" && !filepath.IsAbs(config.TopologyFile):
		config.TopologyFile = filepath.Join(filepath.Dir(configFile), config.TopologyFile)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %v: %w", configFile, err)
	}
	return &config, nil
}

// LoadTopology reads the topology file named by config and validates it against the catalog.
func LoadTopology(resolver dependencyinjection.Resolver, config *domain.Config) (*domain.Node, error) {
	tree, err := infrastructureResolver.GetTopologyLoader(resolver).LoadFile(config.TopologyFile)
	if err != nil {
		return nil, err
	}
	if err := builder.Validate(tree, presentationResolver.GetCatalog(resolver)); err != nil {
		return nil, fmt.Errorf("invalid topology %v: %w", config.TopologyFile, err)
	}
	return tree, nil
}
