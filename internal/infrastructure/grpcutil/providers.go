package grpcutil

import (
	"context"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/certificates"
	"github.com/mwitkow/grpc-proxy/proxy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// NewGrpcServer returns a grpc Server forwarding calls to clientConn
func NewGrpcServer(grpcWebProxy *GrpcWebProxy, clientConn *grpc.ClientConn) *grpc.Server {
	director := func(ctx context.Context, fullMethodName string) (context.Context, *grpc.ClientConn, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		mdCopy := md.Copy()
		delete(mdCopy, "user-agent")
		delete(mdCopy, "connection")
		outCtx := metadata.NewOutgoingContext(ctx, mdCopy)
		return outCtx, clientConn, nil
	}
	var grpcServer *grpc.Server

	if grpcWebProxy.IsTransparentServer {
		// Transparent mode: proxy ALL services and methods
		grpcServer = grpc.NewServer(
			grpc.UnknownServiceHandler(proxy.TransparentHandler(director)),
			grpc.MaxRecvMsgSize(maxMsgSize))
	} else {
		// Selective mode: only proxy explicitly registered services/methods
		grpcServer = grpc.NewServer(
			grpc.MaxRecvMsgSize(maxMsgSize))

		for serviceName, methodsNames := range grpcWebProxy.GrpcServices {
			proxy.RegisterService(grpcServer, director, serviceName, methodsNames...)
		}
	}

	return grpcServer
}

// NewWrappedGrpcServer returns a gRPC Web wrapped server.
func NewWrappedGrpcServer(grpcWebProxy *GrpcWebProxy, grpcServer *grpc.Server) *grpcweb.WrappedGrpcServer {
	if grpcWebProxy.AllowedOrigins == nil {
		grpcWebProxy.AllowedOrigins = make([]string, 0)
	}
	grpcWebProxy.allowedOriginsFormat = grpcWebProxy.AllowedOrigins.toAllowedOriginsFormat()

	// only registered endpoints answer CORS preflights unless the proxy is transparent
	corsForRegisteredOnly := !grpcWebProxy.IsTransparentServer

	options := []grpcweb.Option{
		grpcweb.WithCorsForRegisteredEndpointsOnly(corsForRegisteredOnly),
		grpcweb.WithOriginFunc(grpcWebProxy.makeHTTPOriginFunc()),
	}
	if grpcWebProxy.UseWebSockets {
		options = append(
			options,
			grpcweb.WithWebsockets(true),
			grpcweb.WithWebsocketOriginFunc(grpcWebProxy.getWebsocketOriginFunc()),
		)
	}
	if len(grpcWebProxy.AllowedHeaders) > 0 {
		options = append(
			options,
			grpcweb.WithAllowedRequestHeaders(grpcWebProxy.AllowedHeaders),
		)
	}
	return grpcweb.WrapServer(grpcServer, options...)
}

// NewGrpcClientConn return a client for a gRPC server.
func NewGrpcClientConn(grpcWebProxy *GrpcWebProxy, clientTLS *certificates.ClientTLS) (*grpc.ClientConn, error) {
	var opt []grpc.DialOption

	if len(grpcWebProxy.Authority) > 0 {
		opt = append(opt, grpc.WithAuthority(grpcWebProxy.Authority))
	}

	if clientTLS != nil {
		tlsConfig, err := clientTLS.GetTLSConfig()
		if err != nil {
			return nil, err
		}
		opt = append(opt, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		opt = append(opt, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	clientConn, err := grpc.NewClient(grpcWebProxy.Target, opt...)
	if err != nil {
		return nil, err
	}

	return clientConn, nil
}
