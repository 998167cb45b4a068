package grpcutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"github.com/janmbaco/go-webcontainer/internal/domain"
	"google.golang.org/grpc/grpclog"
)

const maxMsgSize = 1024 * 1024 * 4

// Init params read by GrpcWebProxyFromParams.
const (
	ParamTarget          = "target"
	ParamAuthority       = "authority"
	ParamTransparent     = "transparent"
	ParamServices        = "services"
	ParamAllowAllOrigins = "allow_all_origins"
	ParamAllowedOrigins  = "allowed_origins"
	ParamWebSockets      = "use_web_sockets"
	ParamAllowedHeaders  = "allowed_headers"
)

// GrpcProxy describes the gRPC backend a proxy forwards to.
type GrpcProxy struct {
	Target              string              `json:"target"`
	GrpcServices        map[string][]string `json:"grpc_services"`
	IsTransparentServer bool                `json:"is_transparent_server"`
	Authority           string              `json:"authority"`
}

// GrpcWebProxy describes a gRPC-Web endpoint that calls another gRPC server.
type GrpcWebProxy struct {
	GrpcProxy
	AllowAllOrigins      bool           `json:"allow_all_origins"`
	AllowedOrigins       AllowedOrigins `json:"allowed_origins"`
	UseWebSockets        bool           `json:"use_web_sockets"`
	AllowedHeaders       []string       `json:"allowed_headers"`
	allowedOriginsFormat *allowedOriginsFormat
}

// GrpcWebProxyFromParams reads a GrpcWebProxy from servlet init params.
// services has the form "pkg.Service:Method1|Method2;pkg.Other:Method".
func GrpcWebProxyFromParams(params domain.InitParams) (*GrpcWebProxy, error) {
	target := strings.TrimSpace(params.Value(ParamTarget))
	if target == "" {
		return nil, fmt.Errorf("init param '%v' is required", ParamTarget)
	}
	grpcWebProxy := &GrpcWebProxy{
		GrpcProxy: GrpcProxy{
			Target:       target,
			Authority:    params.Value(ParamAuthority),
			GrpcServices: make(map[string][]string),
		},
		AllowedOrigins: splitList(params.Value(ParamAllowedOrigins), ","),
		AllowedHeaders: splitList(params.Value(ParamAllowedHeaders), ","),
	}

	var err error
	if grpcWebProxy.IsTransparentServer, err = boolParam(params, ParamTransparent); err != nil {
		return nil, err
	}
	if grpcWebProxy.AllowAllOrigins, err = boolParam(params, ParamAllowAllOrigins); err != nil {
		return nil, err
	}
	if grpcWebProxy.UseWebSockets, err = boolParam(params, ParamWebSockets); err != nil {
		return nil, err
	}

	for _, service := range splitList(params.Value(ParamServices), ";") {
		name, methods, _ := strings.Cut(service, ":")
		grpcWebProxy.GrpcServices[strings.TrimSpace(name)] = splitList(methods, "|")
	}
	if !grpcWebProxy.IsTransparentServer && len(grpcWebProxy.GrpcServices) == 0 {
		return nil, fmt.Errorf("init param '%v' is required when the proxy is not transparent", ParamServices)
	}
	return grpcWebProxy, nil
}

func (grpcWebProxy *GrpcWebProxy) makeHTTPOriginFunc() func(origin string) bool {
	if grpcWebProxy.AllowAllOrigins {
		return func(origin string) bool {
			return true
		}
	}
	return grpcWebProxy.allowedOriginsFormat.IsAllowed
}

func (grpcWebProxy *GrpcWebProxy) getWebsocketOriginFunc() func(req *http.Request) bool {
	if grpcWebProxy.AllowAllOrigins {
		return func(req *http.Request) bool {
			return true
		}
	}
	return grpcWebProxy.allowedOriginsFormat.getWebsocketOriginFunc()
}

// AllowedOrigins is used to register the allowed origins.
type AllowedOrigins []string

func (origins AllowedOrigins) toAllowedOriginsFormat() *allowedOriginsFormat {
	o := map[string]struct{}{}
	for _, allowedOrigin := range origins {
		o[allowedOrigin] = struct{}{}
	}
	return &allowedOriginsFormat{
		origins: o,
	}
}

type allowedOriginsFormat struct {
	origins map[string]struct{}
}

func (allowedOriginsFormat *allowedOriginsFormat) getWebsocketOriginFunc() func(req *http.Request) bool {
	return func(req *http.Request) bool {
		origin, err := grpcweb.WebsocketRequestOrigin(req)
		if err != nil {
			grpclog.Warning(err)
			return false
		}
		return allowedOriginsFormat.IsAllowed(origin)
	}
}

// IsAllowed indicates if origin may call the proxy.
func (allowedOriginsFormat *allowedOriginsFormat) IsAllowed(origin string) bool {
	_, ok := allowedOriginsFormat.origins[origin]
	return ok
}

func splitList(value string, sep string) []string {
	var result []string
	for _, item := range strings.Split(value, sep) {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

func boolParam(params domain.InitParams, name string) (bool, error) {
	value, ok := params.Get(name)
	if !ok || strings.TrimSpace(value) == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("init param '%v' must be a boolean: %w", name, err)
	}
	return b, nil
}
