// Package token mints and verifies access tokens and opaque refresh tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/oggyb/pature/internal/errors"
	"github.com/oggyb/pature/internal/utils/clock"
)

const (
	TypeAccess = "access"

	refreshTokenBytes = 48
)

// Claims is the access-token payload: {sub, iat, exp, type}.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the string subject back into a user id.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

type Issuer struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	clock  clock.Clock
}

// NewIssuer validates its configuration up front. Any error here is a
// deployment mistake and should stop the process.
func NewIssuer(secret, algorithm string, accessTTL time.Duration, clk clock.Clock) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if accessTTL <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Issuer{secret: []byte(secret), method: method, ttl: accessTTL, clock: clk}, nil
}

func (i *Issuer) AccessTTL() time.Duration { return i.ttl }

// IssueAccessToken signs a short-lived token for userID.
func (i *Issuer) IssueAccessToken(userID uint64) (AccessToken, error) {
	now := i.clock.Now()
	exp := now.Add(i.ttl)

	claims := Claims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("signing jwt: %w", err)
	}
	return AccessToken{Token: signed, ExpiresAt: exp}, nil
}

// IssueRefreshToken returns 48 random bytes, URL-safe encoded. The value
// carries no identity; the owning session row is found by hash scan.
func (i *Issuer) IssueRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DecodeAccessToken verifies signature, expiry and type. Every failure is
// reported as ErrInvalidToken.
func (i *Issuer) DecodeAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.Type != TypeAccess {
		return nil, apperrors.ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
