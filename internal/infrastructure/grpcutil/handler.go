package grpcutil

import (
	"net/http"
	"strings"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"google.golang.org/grpc"
)

// Handler serves a gRPC server over HTTP: gRPC-Web and WebSocket requests through
// the grpc-web wrapper, native HTTP/2 gRPC requests directly.
type Handler struct {
	grpcServer *grpc.Server
	wrapped    *grpcweb.WrappedGrpcServer
}

// NewHandler wraps grpcServer with the default grpc-web options.
func NewHandler(grpcServer *grpc.Server, options ...grpcweb.Option) *Handler {
	return &Handler{grpcServer: grpcServer, wrapped: grpcweb.WrapServer(grpcServer, options...)}
}

func newHandler(grpcServer *grpc.Server, wrapped *grpcweb.WrappedGrpcServer) *Handler {
	return &Handler{grpcServer: grpcServer, wrapped: wrapped}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.wrapped.IsGrpcWebRequest(r), h.wrapped.IsAcceptableGrpcCorsRequest(r), h.wrapped.IsGrpcWebSocketRequest(r):
		h.wrapped.ServeHTTP(w, r)
	case r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc"):
		h.grpcServer.ServeHTTP(w, r)
	default:
		http.Error(w, "gRPC request expected", http.StatusUnsupportedMediaType)
	}
}

// Destroy stops the gRPC server.
func (h *Handler) Destroy() {
	h.grpcServer.Stop()
}
