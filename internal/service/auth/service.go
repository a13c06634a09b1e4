package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/pature/internal/app"
	"github.com/oggyb/pature/internal/credential"
	"github.com/oggyb/pature/internal/db"
	svcErr "github.com/oggyb/pature/internal/errors"
	"github.com/oggyb/pature/internal/repository"
	"github.com/oggyb/pature/internal/server"
)

const tokenTypeBearer = "bearer"

// Service implements the Auth gRPC API: registration with e-mail
// verification, login, refresh-token rotation and logout.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	devices  *repository.DeviceRepository
	sessions *repository.SessionRepository
	codes    *repository.VerificationRepository

	// decoy is checked in place of a missing user's digest
	decoy string
}

// NewAuthService creates a new Auth service with dependencies from AppContext.
func NewAuthService(appCtx *app.AppContext) *Service {
	decoy, err := credential.DecoyDigest(appCtx.Config.Auth.BcryptCost)
	if err != nil {
		appCtx.Logger.Warn("NewAuthService: decoy digest unavailable", "err", err)
	}
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		devices:  repository.NewDeviceRepository(appCtx.DB),
		sessions: repository.NewSessionRepository(appCtx.DB, appCtx.Hasher, appCtx.Clock),
		codes:    repository.NewVerificationRepository(appCtx.DB),
		decoy:    decoy,
	}
}

var _ AuthServer = (*Service)(nil)

// Register starts sign-up for an e-mail address.
//
// Behavior:
//   - A verified account with this e-mail is AlreadyExists.
//   - An unknown e-mail creates an active, unverified user.
//   - An unverified account gets the new password (and phone) instead.
//   - A fresh code is stored hashed and handed to the notifier, subject to
//     the resend cooldown and the hourly cap.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*DetailResponse, error) {
	if err := server.Validate(req); err != nil {
		return nil, err
	}
	log := s.appCtx.Logger
	cfg := s.appCtx.Config

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, svcErr.ErrNotFound) {
		log.Error("Register: user lookup failed", "err", err)
		return nil, svcErr.Map(err)
	}
	if existing != nil && existing.IsEmailVerified {
		return nil, svcErr.AlreadyExists("user with this email already registered")
	}

	digest, err := credential.HashPassword(req.Password, cfg.Auth.BcryptCost)
	if err != nil {
		log.Error("Register: hash password failed", "err", err)
		return nil, svcErr.Map(err)
	}
	code, err := credential.GenerateNumericCode(credential.DefaultCodeLength)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	codeHash, err := s.appCtx.Hasher.Hash(code)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	var phone *string
	if req.Phone != "" {
		phone = &req.Phone
	}
	now := s.appCtx.Clock.Now()

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		codes := s.codes.WithTx(tx)

		user := existing
		if user == nil {
			email := req.Email
			user = &db.User{
				Email:        &email,
				Phone:        phone,
				PasswordHash: digest,
				IsActive:     true,
			}
			if err := users.Create(ctx, user); err != nil {
				return err
			}
		} else {
			if err := s.checkResendLimits(ctx, codes, user.ID, now); err != nil {
				return err
			}
			if err := users.UpdatePassword(ctx, user.ID, digest, phone); err != nil {
				return err
			}
		}

		return codes.Create(ctx, &db.EmailVerificationCode{
			UserID:      user.ID,
			Email:       req.Email,
			Purpose:     db.PurposeRegister,
			CodeHash:    codeHash,
			ExpiresAt:   now.Add(cfg.Verification.CodeTTL),
			MaxAttempts: cfg.Verification.MaxAttempts,
			CreatedAt:   now,
		})
	})
	if err != nil {
		if !errors.Is(err, svcErr.ErrRateLimited) && !errors.Is(err, svcErr.ErrAlreadyExists) {
			log.Error("Register: persist failed", "err", err)
		}
		return nil, svcErr.Map(err)
	}

	if err := s.appCtx.Notifier.SendVerificationCode(ctx, req.Email, code); err != nil {
		log.Error("Register: send code failed", "email", req.Email, "err", err)
		return nil, svcErr.Map(err)
	}

	log.Info("verification code issued", "email", req.Email)
	return &DetailResponse{Detail: DetailCodeSent}, nil
}

// checkResendLimits enforces the cooldown since the previous code and the
// number of codes per rolling hour.
func (s *Service) checkResendLimits(ctx context.Context, codes *repository.VerificationRepository, userID uint64, now time.Time) error {
	limits := s.appCtx.Config.Verification
	recent, err := codes.Recent(ctx, userID, db.PurposeRegister, limits.ResendMaxPerHour+1)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		return nil
	}
	if now.Sub(recent[0].CreatedAt) < limits.ResendCooldown {
		return svcErr.ErrRateLimited
	}
	if limits.ResendMaxPerHour <= 0 {
		return nil
	}
	inHour := 0
	for _, c := range recent {
		if now.Sub(c.CreatedAt) < time.Hour {
			inHour++
		}
	}
	if inHour >= limits.ResendMaxPerHour {
		return svcErr.ErrRateLimited
	}
	return nil
}

// ConfirmEmail checks the latest active code for the address. Every
// guess burns one attempt; the code is dead once attempts run out.
func (s *Service) ConfirmEmail(ctx context.Context, req *ConfirmEmailRequest) (*DetailResponse, error) {
	if err := server.Validate(req); err != nil {
		return nil, err
	}
	log := s.appCtx.Logger

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, svcErr.ErrNotFound) {
		return nil, svcErr.InvalidArgument("user not found")
	}
	if err != nil {
		log.Error("ConfirmEmail: user lookup failed", "err", err)
		return nil, svcErr.Map(err)
	}
	if user.IsEmailVerified {
		return &DetailResponse{Detail: DetailAlreadyVerified}, nil
	}

	now := s.appCtx.Clock.Now()
	code, err := s.codes.LatestActive(ctx, user.ID, req.Email, db.PurposeRegister, now)
	if errors.Is(err, svcErr.ErrNotFound) {
		return nil, svcErr.InvalidArgument("no active verification code")
	}
	if err != nil {
		log.Error("ConfirmEmail: code lookup failed", "err", err)
		return nil, svcErr.Map(err)
	}

	// the attempt is spent before the hash is checked
	claimed, err := s.codes.ClaimAttempt(ctx, code.ID)
	if err != nil {
		log.Error("ConfirmEmail: claim attempt failed", "err", err)
		return nil, svcErr.Map(err)
	}
	if !claimed {
		return nil, svcErr.InvalidArgument("maximum verification attempts exceeded")
	}
	if !s.appCtx.Hasher.Verify(req.Code, code.CodeHash) {
		return nil, svcErr.InvalidArgument("invalid verification code")
	}

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.codes.WithTx(tx).Consume(ctx, code.ID, now); err != nil {
			return err
		}
		return s.users.WithTx(tx).MarkEmailVerified(ctx, user.ID)
	})
	if errors.Is(err, svcErr.ErrNotFound) {
		return nil, svcErr.InvalidArgument("no active verification code")
	}
	if err != nil {
		log.Error("ConfirmEmail: persist failed", "err", err)
		return nil, svcErr.Map(err)
	}

	log.Info("email verified", "user_id", user.ID)
	return &DetailResponse{Detail: DetailEmailVerified}, nil
}

// Login authenticates by phone and password, records the device and
// opens a new session.
//
// Unknown phone, disabled account, missing password and wrong password
// all return the same Unauthenticated error.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenPair, error) {
	if err := server.Validate(req); err != nil {
		return nil, err
	}
	log := s.appCtx.Logger

	user, err := s.users.GetByPhone(ctx, req.Phone)
	if err != nil && !errors.Is(err, svcErr.ErrNotFound) {
		log.Error("Login: user lookup failed", "err", err)
		return nil, svcErr.Map(err)
	}
	digest := s.decoy
	if user != nil && user.PasswordHash != "" {
		digest = user.PasswordHash
	}
	passwordOK := credential.VerifyPassword(req.Password, digest)
	if user == nil || !user.IsActive || user.PasswordHash == "" || !passwordOK {
		return nil, svcErr.Map(svcErr.ErrInvalidCredentials)
	}
	if !user.IsEmailVerified {
		return nil, svcErr.Map(svcErr.ErrEmailNotVerified)
	}

	client, err := server.ClientInfoFromContext(ctx)
	if err != nil {
		return nil, svcErr.InvalidArgument("x-device-id must be a UUID")
	}
	ip := &client.IP

	now := s.appCtx.Clock.Now()
	device, err := s.devices.Upsert(ctx, user.ID, repository.DeviceInfo{
		DeviceID:    client.DeviceID.String(),
		Platform:    client.Platform,
		DeviceModel: client.DeviceModel,
		OSVersion:   client.OSVersion,
		AppVersion:  client.AppVersion,
		PushToken:   client.PushToken,
		IP:          ip,
	}, now)
	if err != nil {
		log.Error("Login: device upsert failed", "user_id", user.ID, "err", err)
		return nil, svcErr.Map(err)
	}

	access, err := s.appCtx.Tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	refresh, err := s.appCtx.Tokens.IssueRefreshToken()
	if err != nil {
		return nil, svcErr.Map(err)
	}

	deviceID := device.ID
	if _, err := s.sessions.Create(ctx, repository.NewSession{
		UserID:       user.ID,
		DeviceID:     &deviceID,
		RefreshPlain: refresh,
		TTL:          s.appCtx.Config.Auth.RefreshTTL,
		IP:           ip,
		UserAgent:    client.UserAgent,
	}); err != nil {
		log.Error("Login: create session failed", "user_id", user.ID, "err", err)
		return nil, svcErr.Map(err)
	}
	s.appCtx.Metrics.SessionIssued()

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		log.Warn("Login: touch last login failed", "user_id", user.ID, "err", err)
	}

	log.Info("user logged in", "user_id", user.ID, "device_id", deviceID)
	return s.pair(access.Token, access.ExpiresAt, refresh), nil
}

// Refresh rotates the session behind refresh_token and returns a new
// token pair. A replayed or expired token, an unknown phone and a
// disabled account all get the same Unauthenticated error.
func (s *Service) Refresh(ctx context.Context, req *RefreshRequest) (*TokenPair, error) {
	if err := server.Validate(req); err != nil {
		return nil, svcErr.InvalidArgument("phone and refresh_token are required")
	}
	log := s.appCtx.Logger

	user, err := s.users.GetByPhone(ctx, req.Phone)
	if err != nil && !errors.Is(err, svcErr.ErrNotFound) {
		log.Error("Refresh: user lookup failed", "err", err)
		return nil, svcErr.Map(err)
	}
	if user == nil || !user.IsActive {
		// same answer and cost as a wrong token for a known phone
		s.appCtx.Hasher.Verify(req.RefreshToken, s.decoy)
		return nil, svcErr.Map(svcErr.ErrInvalidRefreshToken)
	}

	session, err := s.sessions.FindActiveByRefresh(ctx, user.ID, req.RefreshToken)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	access, err := s.appCtx.Tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	refresh, err := s.appCtx.Tokens.IssueRefreshToken()
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if _, err := s.sessions.Rotate(ctx, session, refresh, s.appCtx.Config.Auth.RefreshTTL); err != nil {
		if !errors.Is(err, svcErr.ErrInvalidRefreshToken) {
			log.Error("Refresh: rotate failed", "user_id", user.ID, "err", err)
		}
		return nil, svcErr.Map(err)
	}
	s.appCtx.Metrics.SessionsRevoked(db.RevokeRotation, 1)
	s.appCtx.Metrics.SessionIssued()

	log.Debug("session rotated", "user_id", user.ID, "session_id", session.ID)
	return s.pair(access.Token, access.ExpiresAt, refresh), nil
}

// Logout revokes the caller's session behind refresh_token. An unknown or
// already revoked token is not an error.
func (s *Service) Logout(ctx context.Context, req *LogoutRequest) (*DetailResponse, error) {
	userID, ok := server.UserIDFromContext(ctx)
	if !ok {
		return nil, svcErr.Map(svcErr.ErrInvalidToken)
	}
	if err := server.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.sessions.FindActiveByRefresh(ctx, userID, req.RefreshToken)
	if errors.Is(err, svcErr.ErrInvalidRefreshToken) {
		return &DetailResponse{Detail: DetailAlreadyLoggedOut}, nil
	}
	if err != nil {
		s.appCtx.Logger.Error("Logout: session lookup failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	changed, err := s.sessions.Revoke(ctx, session, db.RevokeLogout)
	if err != nil {
		s.appCtx.Logger.Error("Logout: revoke failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	if !changed {
		// a concurrent logout or rotation got there first
		return &DetailResponse{Detail: DetailAlreadyLoggedOut}, nil
	}
	s.appCtx.Metrics.SessionsRevoked(db.RevokeLogout, 1)

	s.appCtx.Logger.Info("user logged out", "user_id", userID, "session_id", session.ID)
	return &DetailResponse{Detail: DetailOK}, nil
}

// LogoutAll revokes every current session of the caller, keeping the one
// behind refresh_token when it is given and still valid.
func (s *Service) LogoutAll(ctx context.Context, req *LogoutAllRequest) (*LogoutAllResponse, error) {
	userID, ok := server.UserIDFromContext(ctx)
	if !ok {
		return nil, svcErr.Map(svcErr.ErrInvalidToken)
	}
	if err := server.Validate(req); err != nil {
		return nil, err
	}

	var keep *uint64
	if req.RefreshToken != "" {
		current, err := s.sessions.FindActiveByRefresh(ctx, userID, req.RefreshToken)
		switch {
		case err == nil:
			keep = &current.ID
		case errors.Is(err, svcErr.ErrInvalidRefreshToken):
			// unknown token: revoke everything
		default:
			return nil, svcErr.Map(err)
		}
	}

	n, err := s.sessions.RevokeAllForUser(ctx, userID, keep, db.RevokeBulkRevoke)
	if err != nil {
		s.appCtx.Logger.Error("LogoutAll: revoke failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	s.appCtx.Metrics.SessionsRevoked(db.RevokeBulkRevoke, int(n))

	active, err := s.sessions.CountActive(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Error("LogoutAll: count sessions failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Info("sessions revoked", "user_id", userID, "count", n, "remaining", active)
	return &LogoutAllResponse{Detail: DetailOK, Revoked: n, ActiveSessions: active}, nil
}

func (s *Service) pair(access string, expiresAt time.Time, refresh string) *TokenPair {
	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		TokenType:       tokenTypeBearer,
		AccessExpiresAt: expiresAt,
	}
}
