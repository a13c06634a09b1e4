package server

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"

	svcErr "github.com/oggyb/pature/internal/errors"
	"github.com/oggyb/pature/internal/token"
)

const unauthenticatedMsg = "could not validate credentials"

// ActiveUsers reports whether an account may still use the API.
type ActiveUsers interface {
	IsActive(ctx context.Context, id uint64) (bool, error)
}

// AuthInterceptor validates the bearer access token on every method that
// is not listed in public and puts the user id on the context.
func AuthInterceptor(tokens *token.Issuer, users ActiveUsers, public map[string]bool, log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if public[info.FullMethod] {
			return handler(ctx, req)
		}

		raw, ok := BearerToken(ctx)
		if !ok {
			return nil, svcErr.Unauthenticated(unauthenticatedMsg)
		}
		claims, err := tokens.DecodeAccessToken(raw)
		if err != nil {
			return nil, svcErr.Unauthenticated(unauthenticatedMsg)
		}
		userID, err := claims.UserID()
		if err != nil {
			return nil, svcErr.Unauthenticated(unauthenticatedMsg)
		}

		active, err := users.IsActive(ctx, userID)
		if err != nil {
			log.Error("auth: user lookup failed", "user_id", userID, "err", err)
			return nil, svcErr.Map(err)
		}
		if !active {
			return nil, svcErr.Unauthenticated(unauthenticatedMsg)
		}

		return handler(WithUserID(ctx, userID), req)
	}
}
