package presentation

import (
	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/grpcutil"
)

// Names of the stock classes topology files can refer to.
const (
	RecoveryClass     = "recovery"
	HeadersClass      = "headers"
	RequestLogClass   = "request_log"
	RedirectClass     = "redirect"
	HealthClass       = "health"
	GrpcWebProxyClass = "grpc_web_proxy"
)

// DefaultCatalog returns a catalog holding the stock filters and servlets.
// Applications register their own classes on the returned catalog.
func DefaultCatalog() (*domain.Catalog, error) {
	return domain.NewCatalog(
		domain.Class{Name: RecoveryClass, Constructor: NewRecoveryFilter},
		domain.Class{Name: HeadersClass, Constructor: NewHeaderFilter},
		domain.Class{Name: RequestLogClass, Constructor: NewRequestLogFilter},
		domain.Class{Name: RedirectClass, Constructor: NewRedirectServlet},
		domain.Class{Name: HealthClass, Constructor: NewHealthServlet},
		domain.Class{Name: GrpcWebProxyClass, Constructor: grpcutil.NewProxyServlet},
	)
}
