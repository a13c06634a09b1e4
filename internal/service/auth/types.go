package auth

import "time"

// Detail values returned by the auth RPCs.
const (
	DetailCodeSent         = "verification_code_sent"
	DetailEmailVerified    = "email_verified"
	DetailAlreadyVerified  = "email_already_verified"
	DetailOK               = "ok"
	DetailAlreadyLoggedOut = "already logged out"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
}

type ConfirmEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,min=4,max=10,numeric"`
}

type LoginRequest struct {
	Phone    string `json:"phone" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RefreshRequest struct {
	Phone        string `json:"phone" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutAllRequest revokes every session of the caller. When
// RefreshToken names one of them, that session survives.
type LogoutAllRequest struct {
	RefreshToken string `json:"refresh_token,omitempty" validate:"omitempty,min=10,max=1024"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type TokenPair struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	TokenType       string    `json:"token_type"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type LogoutAllResponse struct {
	Detail  string `json:"detail"`
	Revoked int64  `json:"revoked"`
	// sessions still usable afterwards
	ActiveSessions int `json:"active_sessions"`
}
