package startup

import (
	"github.com/janmbaco/go-infrastructure/v2/configuration/fileconfig/ioc"
	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	diskIoc "github.com/janmbaco/go-infrastructure/v2/disk/ioc"
	errorsIoc "github.com/janmbaco/go-infrastructure/v2/errors/ioc"
	eventsIoc "github.com/janmbaco/go-infrastructure/v2/eventsmanager/ioc"
	logsIoc "github.com/janmbaco/go-infrastructure/v2/logs/ioc"
	applicationIoc "github.com/janmbaco/go-webcontainer/internal/application/ioc"
	infrastructureIoc "github.com/janmbaco/go-webcontainer/internal/infrastructure/ioc"
	presentationIoc "github.com/janmbaco/go-webcontainer/internal/presentation/ioc"
)

// NewContainer builds the IoC container with every module the web container needs.
func NewContainer() dependencyinjection.Container {
	return dependencyinjection.NewBuilder().
		AddModule(logsIoc.NewLogsModule()).
		AddModule(errorsIoc.NewErrorsModule()).
		AddModule(eventsIoc.NewEventsModule()).
		AddModule(diskIoc.NewDiskModule()).
		AddModule(ioc.NewConfigurationModule()).
		AddModule(presentationIoc.NewPresentationModule()).
		AddModule(infrastructureIoc.NewInfrastructureModule()).
		AddModule(applicationIoc.NewApplicationModule()).
		MustBuild()
}
