package ioc

import (
	"github.com/janmbaco/go-infrastructure/v2/configuration"
	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/application/builder"
	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// ApplicationModule implementa Module para servicios de aplicación
type ApplicationModule struct{}

// NewApplicationModule crea un nuevo módulo de aplicación
func NewApplicationModule() *ApplicationModule {
	return &ApplicationModule{}
}

// RegisterServices registra todos los servicios de aplicación
func (m *ApplicationModule) RegisterServices(register dependencyinjection.Register) error {
	// Registrar TopologyBuilder como singleton con resolución automática de dependencias
	dependencyinjection.RegisterSingletonWithParams[*builder.TopologyBuilder](
		register,
		newTopologyBuilder,
		map[int]string{1: "logger", 3: "configHandler"},
	)

	return nil
}

func newTopologyBuilder(servers domain.ServerFactory, logger domain.Logger, catalog *domain.Catalog, configHandler configuration.ConfigHandler) *builder.TopologyBuilder {
	config := configHandler.GetConfig().(*domain.Config)
	return builder.NewTopologyBuilder(servers, logger,
		builder.WithCatalog(catalog),
		builder.WithShutdownTimeout(config.ShutdownTimeout()),
		builder.WithTracing(config.Tracing),
	)
}
