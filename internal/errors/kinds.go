package errors

import "errors"

// Error kinds shared by repositories and services. Services compare with
// errors.Is; Map turns them into gRPC statuses.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrSelfMatchNotAllowed = errors.New("self match not allowed")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrAlreadyExists       = errors.New("already exists")
	ErrRateLimited         = errors.New("rate limited")
)
