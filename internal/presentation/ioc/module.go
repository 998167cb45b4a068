package ioc

import (
	"fmt"

	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/presentation"
)

// PresentationModule implementa Module para los componentes web de serie
type PresentationModule struct{}

// NewPresentationModule crea un nuevo módulo de presentación
func NewPresentationModule() *PresentationModule {
	return &PresentationModule{}
}

// RegisterServices registra todos los servicios de presentación
func (m *PresentationModule) RegisterServices(register dependencyinjection.Register) error {
	catalog, err := presentation.DefaultCatalog()
	if err != nil {
		return fmt.Errorf("failed to create class catalog: %w", err)
	}

	// Catalog - filtros y servlets de serie, sin parámetros
	dependencyinjection.RegisterSingleton(
		register,
		func() *domain.Catalog { return catalog },
	)

	return nil
}
