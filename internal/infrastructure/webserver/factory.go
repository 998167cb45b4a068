package webserver

import (
	"github.com/janmbaco/go-webcontainer/internal/domain"
)

type serverFactory struct {
	logger  domain.Logger
	catalog *domain.Catalog
}

// NewServerFactory creates servers whose archive deployments resolve classes through catalog.
func NewServerFactory(logger domain.Logger, catalog *domain.Catalog) domain.ServerFactory {
	return &serverFactory{logger: logger, catalog: catalog}
}

func (f *serverFactory) NewServer(port int, options domain.ServerOptions) (domain.Server, error) {
	server, err := NewServer(port, options, f.logger, f.catalog)
	if err != nil {
		return nil, err
	}
	return server, nil
}
