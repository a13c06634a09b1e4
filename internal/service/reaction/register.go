package reaction

import (
	"google.golang.org/grpc"

	"github.com/oggyb/pature/internal/app"
)

// Registrar ties the Reaction service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Reaction service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Reaction service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewReactionService(r.appCtx))
}
