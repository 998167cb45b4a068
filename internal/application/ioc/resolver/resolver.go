package resolver

import (
	"github.com/janmbaco/go-infrastructure/v2/configuration"
	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/application/builder"
	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// GetTopologyBuilder obtiene el TopologyBuilder del contenedor IoC
func GetTopologyBuilder(resolver dependencyinjection.Resolver, logger domain.Logger, configHandler configuration.ConfigHandler) *builder.TopologyBuilder {

	return dependencyinjection.ResolveWithParams[*builder.TopologyBuilder](
		resolver,
		map[string]interface{}{
			"logger":        logger,
			"configHandler": configHandler,
		},
	)
}
