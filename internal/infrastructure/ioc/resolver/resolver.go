package resolver

import (
	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/hclscript"
)

// GetScopeFactory obtiene la ScopeFactory del contenedor IoC
func GetScopeFactory(resolver dependencyinjection.Resolver, logger domain.Logger) domain.ScopeFactory {
	return dependencyinjection.ResolveWithParams[domain.ScopeFactory](resolver, map[string]any{"logger": logger})
}

// GetServerFactory obtiene la ServerFactory del contenedor IoC
func GetServerFactory(resolver dependencyinjection.Resolver, logger domain.Logger) domain.ServerFactory {
	return dependencyinjection.ResolveWithParams[domain.ServerFactory](resolver, map[string]any{"logger": logger})
}

// GetTopologyLoader obtiene el Loader de topologías del contenedor IoC
func GetTopologyLoader(resolver dependencyinjection.Resolver) *hclscript.Loader {
	result := resolver.Type(new(*hclscript.Loader), nil)
	if loader, ok := result.(*hclscript.Loader); ok {
		return loader
	}
	panic("failed to resolve topology Loader")
}
