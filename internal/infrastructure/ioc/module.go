package ioc

import (
	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/container"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/hclscript"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/webserver"
)

// InfrastructureModule implementa Module para servicios de infraestructura
type InfrastructureModule struct{}

// NewInfrastructureModule crea un nuevo módulo de infraestructura
func NewInfrastructureModule() *InfrastructureModule {
	return &InfrastructureModule{}
}

// RegisterServices registra todos los servicios de infraestructura
func (m *InfrastructureModule) RegisterServices(register dependencyinjection.Register) error {
	// Registrar ScopeFactory como singleton, necesita logger
	dependencyinjection.RegisterSingletonWithParams[domain.ScopeFactory](
		register,
		container.NewScopeFactory,
		map[int]string{0: "logger"},
	)

	// Registrar ServerFactory como singleton, el catálogo se resuelve automáticamente
	dependencyinjection.RegisterSingletonWithParams[domain.ServerFactory](
		register,
		webserver.NewServerFactory,
		map[int]string{0: "logger"},
	)

	// Registrar Loader de topologías HCL como singleton, el catálogo se resuelve automáticamente
	dependencyinjection.RegisterSingletonWithParams[*hclscript.Loader](
		register,
		hclscript.NewLoader,
		map[int]string{},
	)

	return nil
}
