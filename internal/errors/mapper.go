// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Map converts repo/infra errors into gRPC-friendly status errors.
// Public messages are fixed per kind so internal detail never leaks.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")

	case errors.Is(err, ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid or expired token")

	case errors.Is(err, ErrInvalidRefreshToken):
		return status.Error(codes.Unauthenticated, "invalid or expired refresh token")

	case errors.Is(err, ErrEmailNotVerified):
		return status.Error(codes.FailedPrecondition, "email is not verified")

	case errors.Is(err, ErrSelfMatchNotAllowed):
		return status.Error(codes.InvalidArgument, "cannot match with yourself")

	case errors.Is(err, ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, "invalid argument")

	case errors.Is(err, ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")

	case errors.Is(err, ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "too many requests")

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// AlreadyExists creates a gRPC AlreadyExists error.
func AlreadyExists(msg string) error {
	return status.Error(codes.AlreadyExists, msg)
}

// NotFound creates a gRPC NotFound error with a caller-facing message.
func NotFound(msg string) error {
	return status.Error(codes.NotFound, msg)
}

// FailedPrecondition creates a gRPC FailedPrecondition error.
func FailedPrecondition(msg string) error {
	return status.Error(codes.FailedPrecondition, msg)
}

// Unauthenticated creates a gRPC Unauthenticated error.
func Unauthenticated(msg string) error {
	return status.Error(codes.Unauthenticated, msg)
}
