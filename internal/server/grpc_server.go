package server

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/pature/internal/app"
	"github.com/oggyb/pature/internal/repository"
)

// NewGRPCServer builds a gRPC server with the interceptor chain
// (metrics, rate limit, auth) and registers all provided services.
func NewGRPCServer(appCtx *app.AppContext, registrars ...Registrar) *grpc.Server {
	public := map[string]bool{}
	for _, r := range registrars {
		if p, ok := r.(PublicRegistrar); ok {
			for _, m := range p.PublicMethods() {
				public[m] = true
			}
		}
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		appCtx.Metrics.UnaryServerInterceptor(),
		RateLimitInterceptor(appCtx.RedisCache, appCtx.Config, appCtx.Clock, appCtx.Metrics, appCtx.Logger),
		AuthInterceptor(appCtx.Tokens, repository.NewUserRepository(appCtx.DB), public, appCtx.Logger),
	))

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer
}

// Listen opens the TCP listener for the configured gRPC address.
func Listen(appCtx *app.AppContext) (net.Listener, error) {
	addr := net.JoinHostPort(appCtx.Config.GRPC.Host, appCtx.Config.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return lis, nil
}
