package main

import (
	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-infrastructure/v2/logs"
	"github.com/janmbaco/go-webcontainer/internal/application/startup"
	"github.com/janmbaco/go-webcontainer/internal/domain"
)

type ServerBootstrapper struct{}

func NewServerBootstrapper() *ServerBootstrapper {
	return &ServerBootstrapper{}
}

func (sb *ServerBootstrapper) BuildContainer() dependencyinjection.Container {
	return startup.NewContainer()
}

func (sb *ServerBootstrapper) CreateDefaultConfig() *domain.Config {
	return &domain.Config{
		TopologyFile:           "webcontainer.hcl",
		LogConsoleLevel:        logs.Trace,
		LogFileLevel:           logs.Trace,
		LogsDir:                "./logger",
		ShutdownTimeoutSeconds: int(domain.DefaultShutdownTimeout.Seconds()),
	}
}
