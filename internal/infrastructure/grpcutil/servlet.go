package grpcutil

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/certificates"
	"google.golang.org/grpc"
)

// ProxyServlet forwards gRPC-Web calls to the gRPC backend named by its init params.
type ProxyServlet struct {
	logger     domain.Logger
	mu         sync.RWMutex
	handler    *Handler
	clientConn *grpc.ClientConn
}

// NewProxyServlet creates an unconfigured ProxyServlet.
func NewProxyServlet(logger domain.Logger) *ProxyServlet {
	return &ProxyServlet{logger: logger}
}

// Init dials the backend and builds the gRPC-Web server.
func (p *ProxyServlet) Init(config domain.HandlerConfig) error {
	grpcWebProxy, err := GrpcWebProxyFromParams(config.InitParams)
	if err != nil {
		return err
	}
	clientConn, err := NewGrpcClientConn(grpcWebProxy, certificates.ClientTLSFromParams(config.InitParams))
	if err != nil {
		return fmt.Errorf("failed to create gRPC client for %v: %w", grpcWebProxy.Target, err)
	}
	grpcServer := NewGrpcServer(grpcWebProxy, clientConn)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientConn = clientConn
	p.handler = newHandler(grpcServer, NewWrappedGrpcServer(grpcWebProxy, grpcServer))
	p.logger.Info(fmt.Sprintf("gRPC-Web proxy %v%v -> %v", config.ContextPath, config.Path, grpcWebProxy.Target))
	return nil
}

func (p *ProxyServlet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	handler := p.handler
	p.mu.RUnlock()
	if handler == nil {
		http.Error(w, "gRPC-Web proxy not initialized", http.StatusServiceUnavailable)
		return
	}
	handler.ServeHTTP(w, r)
}

// Destroy stops the gRPC server and closes the backend connection.
func (p *ProxyServlet) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handler != nil {
		p.handler.Destroy()
		p.handler = nil
	}
	if p.clientConn != nil {
		if err := p.clientConn.Close(); err != nil {
			p.logger.Error(fmt.Sprintf("failed to close gRPC client: %v", err))
		}
		p.clientConn = nil
	}
}
