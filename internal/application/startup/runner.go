package startup

import (
	"context"
	"fmt"

	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/application/builder"
	applicationResolver "github.com/janmbaco/go-webcontainer/internal/application/ioc/resolver"
	"github.com/janmbaco/go-webcontainer/internal/domain"
	infrastructureResolver "github.com/janmbaco/go-webcontainer/internal/infrastructure/ioc/resolver"

	fileConfigResolver "github.com/janmbaco/go-infrastructure/v2/configuration/fileconfig/ioc/resolver"
	logsResolver "github.com/janmbaco/go-infrastructure/v2/logs/ioc/resolver"
)

type ApplicationRunner struct {
	configFile    string
	topologyFile  string
	defaultConfig *domain.Config
}

// NewApplicationRunner creates a runner. A non empty topologyFile overrides the one in the config.
func NewApplicationRunner(configFile string, topologyFile string, defaultConfig *domain.Config) *ApplicationRunner {
	return &ApplicationRunner{
		configFile:    configFile,
		topologyFile:  topologyFile,
		defaultConfig: defaultConfig,
	}
}

// Start builds the configured topology and returns it running.
func (ar *ApplicationRunner) Start(container dependencyinjection.Container) (*builder.Topology, error) {
	configHandler := fileConfigResolver.GetFileConfigHandler(
		container.Resolver(),
		ar.configFile,
		ar.defaultConfig,
	)

	logger := logsResolver.GetLogger(container.Resolver())

	config, err := effectiveConfig(configHandler, ar.configFile, ar.topologyFile)
	if err != nil {
		return nil, err
	}
	ar.setLogConfiguration(config, logger)

	tree, err := LoadTopology(container.Resolver(), config)
	if err != nil {
		logger.Error(err.Error())
		return nil, err
	}

	topologyBuilder := applicationResolver.GetTopologyBuilder(container.Resolver(), logger, configHandler)
	scopes := infrastructureResolver.GetScopeFactory(container.Resolver(), logger)

	topology, err := topologyBuilder.Build(tree, scopes)
	if err != nil {
		return nil, err
	}
	for _, addr := range topology.Addrs() {
		logger.Info(fmt.Sprintf("%v listening on %v", config.TopologyFile, addr))
	}
	return topology, nil
}

// Run starts the topology and stops it once ctx is done.
func (ar *ApplicationRunner) Run(ctx context.Context, container dependencyinjection.Container) error {
	topology, err := ar.Start(container)
	if err != nil {
		return err
	}

	<-ctx.Done()
	return topology.Stop()
}

func (ar *ApplicationRunner) setLogConfiguration(config *domain.Config, logger domain.Logger) {
	logger.SetDir(config.LogsDir)
	logger.SetConsoleLevel(config.LogConsoleLevel)
	logger.SetFileLogLevel(config.LogFileLevel)
}
