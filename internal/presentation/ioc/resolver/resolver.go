package resolver

import (
	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// GetCatalog obtiene el catálogo de clases del contenedor IoC
func GetCatalog(resolver dependencyinjection.Resolver) *domain.Catalog {
	result := resolver.Type(new(*domain.Catalog), nil)
	if catalog, ok := result.(*domain.Catalog); ok {
		return catalog
	}
	panic("failed to resolve Catalog")
}
