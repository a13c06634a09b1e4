package auth

import (
	"google.golang.org/grpc"

	"github.com/oggyb/pature/internal/app"
)

// Registrar ties the Auth service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Auth service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Auth service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewAuthService(r.appCtx))
}

// PublicMethods are reachable without an access token.
func (r *Registrar) PublicMethods() []string {
	return []string{
		FullMethod("Register"),
		FullMethod("ConfirmEmail"),
		FullMethod("Login"),
		FullMethod("Refresh"),
	}
}
