package auth_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oggyb/pature/internal/app/apptest"
	"github.com/oggyb/pature/internal/config"
	"github.com/oggyb/pature/internal/credential"
	"github.com/oggyb/pature/internal/db"
	"github.com/oggyb/pature/internal/server"
	"github.com/oggyb/pature/internal/service/auth"
)

const (
	testPhone    = "+4915100000001"
	testEmail    = "owner@example.test"
	testPassword = "correct horse battery"
)

//
// Test helpers
//

func setupService(t *testing.T, mutate func(*config.Config)) (*auth.Service, *apptest.Fixture) {
	t.Helper()
	fx := apptest.New(t, mutate)
	return auth.NewAuthService(fx.App), fx
}

// seedUser inserts an active account with a known password.
func seedUser(t *testing.T, fx *apptest.Fixture, phone string, verified, active bool) *db.User {
	t.Helper()
	digest, err := credential.HashPassword(testPassword, 4)
	require.NoError(t, err)
	email := phone + "@example.test"
	p := phone
	u := &db.User{
		Phone:           &p,
		Email:           &email,
		PasswordHash:    digest,
		IsActive:        active,
		IsEmailVerified: verified,
	}
	require.NoError(t, fx.App.DB.Create(u).Error)
	return u
}

func deviceCtx(deviceID string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		server.HeaderDeviceID, deviceID,
		server.HeaderPlatform, "ios",
		server.HeaderDeviceModel, "iPhone15,2",
		server.HeaderRealIP, "203.0.113.7",
		server.HeaderUserAgent, "pature-ios/2.1",
	))
}

func login(t *testing.T, svc *auth.Service, phone string) *auth.TokenPair {
	t.Helper()
	pair, err := svc.Login(deviceCtx(uuid.NewString()), &auth.LoginRequest{Phone: phone, Password: testPassword})
	require.NoError(t, err)
	return pair
}

func activeSessions(t *testing.T, fx *apptest.Fixture, userID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, fx.App.DB.Model(&db.UserSession{}).
		Where("user_id = ? AND is_current = ? AND revoked_at IS NULL", userID, true).
		Count(&n).Error)
	return n
}

// countingHasher counts how many guesses reach the slow hash.
type countingHasher struct {
	credential.Hasher
	verified atomic.Int32
}

func (h *countingHasher) Verify(secret, digest string) bool {
	h.verified.Add(1)
	return h.Hasher.Verify(secret, digest)
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, status.Code(err), "unexpected status: %v", err)
}

//
// Tests
//

// TestRegisterAndConfirmEmail walks the sign-up flow from the first code
// to a verified account that can log in.
func TestRegisterAndConfirmEmail(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, nil)

	resp, err := svc.Register(ctx, &auth.RegisterRequest{Email: testEmail, Phone: testPhone, Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, auth.DetailCodeSent, resp.Detail)

	code := fx.Notifier.Last(testEmail)
	require.Len(t, code, credential.DefaultCodeLength)

	// not verified yet
	_, err = svc.Login(deviceCtx(uuid.NewString()), &auth.LoginRequest{Phone: testPhone, Password: testPassword})
	requireCode(t, err, codes.FailedPrecondition)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = svc.ConfirmEmail(ctx, &auth.ConfirmEmailRequest{Email: testEmail, Code: wrong})
	requireCode(t, err, codes.InvalidArgument)

	var stored db.EmailVerificationCode
	require.NoError(t, fx.App.DB.Last(&stored).Error)
	assert.Equal(t, 1, stored.AttemptCount)
	assert.NotEqual(t, code, stored.CodeHash)

	resp, err = svc.ConfirmEmail(ctx, &auth.ConfirmEmailRequest{Email: testEmail, Code: code})
	require.NoError(t, err)
	assert.Equal(t, auth.DetailEmailVerified, resp.Detail)

	resp, err = svc.ConfirmEmail(ctx, &auth.ConfirmEmailRequest{Email: testEmail, Code: code})
	require.NoError(t, err)
	assert.Equal(t, auth.DetailAlreadyVerified, resp.Detail)

	pair := login(t, svc, testPhone)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.Register(ctx, &auth.RegisterRequest{Email: testEmail, Password: testPassword})
	requireCode(t, err, codes.AlreadyExists)
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := setupService(t, nil)

	_, err := svc.Register(context.Background(), &auth.RegisterRequest{Email: "not-an-email", Password: "short"})
	requireCode(t, err, codes.InvalidArgument)
	assert.Contains(t, status.Convert(err).Message(), "email")
	assert.Contains(t, status.Convert(err).Message(), "password")
}

// TestRegisterAgainReplacesPassword covers re-registration of an
// unverified address with a different password.
func TestRegisterAgainReplacesPassword(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, nil)

	_, err := svc.Register(ctx, &auth.RegisterRequest{Email: testEmail, Phone: testPhone, Password: "first password"})
	require.NoError(t, err)

	fx.Clock.Advance(2 * time.Minute)
	_, err = svc.Register(ctx, &auth.RegisterRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)

	_, err = svc.ConfirmEmail(ctx, &auth.ConfirmEmailRequest{Email: testEmail, Code: fx.Notifier.Last(testEmail)})
	require.NoError(t, err)

	login(t, svc, testPhone)
	_, err = svc.Login(deviceCtx(uuid.NewString()), &auth.LoginRequest{Phone: testPhone, Password: "first password"})
	requireCode(t, err, codes.Unauthenticated)
}

func TestRegisterResendCooldown(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, nil)
	req := &auth.RegisterRequest{Email: testEmail, Password: testPassword}

	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	requireCode(t, err, codes.ResourceExhausted)
	assert.Equal(t, 1, fx.Notifier.Sent())

	fx.Clock.Advance(61 * time.Second)
	_, err = svc.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.Notifier.Sent())
}

func TestRegisterHourlyCap(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, func(c *config.Config) {
		c.Verification.ResendCooldown = time.Second
		c.Verification.ResendMaxPerHour = 2
	})
	req := &auth.RegisterRequest{Email: testEmail, Password: testPassword}

	_, err := svc.Register(ctx, req)
	require.NoError(t, err)
	fx.Clock.Advance(2 * time.Second)
	_, err = svc.Register(ctx, req)
	require.NoError(t, err)

	fx.Clock.Advance(2 * time.Second)
	_, err = svc.Register(ctx, req)
	requireCode(t, err, codes.ResourceExhausted)

	fx.Clock.Advance(time.Hour)
	_, err = svc.Register(ctx, req)
	require.NoError(t, err)
}

func TestConfirmEmailAttemptBudget(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, func(c *config.Config) { c.Verification.MaxAttempts = 2 })

	_, err := svc.Register(ctx, &auth.RegisterRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	code := fx.Notifier.Last(testEmail)

	wrong := "999999"
	if code == wrong {
		wrong = "888888"
	}
	for i := 0; i < 2; i++ {
		_, err = svc.ConfirmEmail(ctx, &auth.ConfirmEmailRequest{Email: testEmail, Code: wrong})
		requireCode(t, err, codes.InvalidArgument)
	}

	// the right code no longer helps
	_, err = svc.ConfirmEmail(ctx, &auth.ConfirmEmailRequest{Email: testEmail, Code: code})
	requireCode(t, err, codes.InvalidArgument)
	assert.Contains(t, status.Convert(err).Message(), "maximum")
}

// TestConfirmEmailParallelGuessesShareBudget fires more wrong codes at
// once than the code allows and checks that only max_attempts of them are
// ever compared against the stored hash.
func TestConfirmEmailParallelGuessesShareBudget(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, func(c *config.Config) { c.Verification.MaxAttempts = 3 })

	_, err := svc.Register(ctx, &auth.RegisterRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	wrong := "999999"
	if fx.Notifier.Last(testEmail) == wrong {
		wrong = "888888"
	}
	hasher := &countingHasher{Hasher: fx.App.Hasher}
	fx.App.Hasher = hasher

	const guesses = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		messages = map[string]int{}
	)
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ConfirmEmail(ctx, &auth.ConfirmEmailRequest{Email: testEmail, Code: wrong})
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
			mu.Lock()
			messages[status.Convert(err).Message()]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, messages["invalid verification code"])
	assert.Equal(t, guesses-3, messages["maximum verification attempts exceeded"])
	assert.Equal(t, int32(3), hasher.verified.Load())

	var stored db.EmailVerificationCode
	require.NoError(t, fx.App.DB.Last(&stored).Error)
	assert.Equal(t, 3, stored.AttemptCount)
}

func TestConfirmEmailExpiredCode(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, nil)

	_, err := svc.Register(ctx, &auth.RegisterRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)

	fx.Clock.Advance(16 * time.Minute)
	_, err = svc.ConfirmEmail(ctx, &auth.ConfirmEmailRequest{Email: testEmail, Code: fx.Notifier.Last(testEmail)})
	requireCode(t, err, codes.InvalidArgument)
	assert.Contains(t, status.Convert(err).Message(), "no active verification code")
}

func TestConfirmEmailUnknownUser(t *testing.T) {
	svc, _ := setupService(t, nil)

	_, err := svc.ConfirmEmail(context.Background(), &auth.ConfirmEmailRequest{Email: "nobody@example.test", Code: "123456"})
	requireCode(t, err, codes.InvalidArgument)
}

// TestLoginFailuresLookAlike checks that unknown phone, wrong password
// and disabled account cannot be told apart.
func TestLoginFailuresLookAlike(t *testing.T) {
	svc, fx := setupService(t, nil)
	seedUser(t, fx, testPhone, true, true)
	seedUser(t, fx, "+4915100000002", true, false)

	noPassword := "+4915100000003"
	require.NoError(t, fx.App.DB.Create(&db.User{Phone: &noPassword, IsActive: true, IsEmailVerified: true}).Error)

	cases := map[string]*auth.LoginRequest{
		"unknown phone":  {Phone: "+4915199999999", Password: testPassword},
		"wrong password": {Phone: testPhone, Password: "wrong password"},
		"inactive":       {Phone: "+4915100000002", Password: testPassword},
		"no password":    {Phone: noPassword, Password: testPassword},
	}

	var messages []string
	for name, req := range cases {
		_, err := svc.Login(deviceCtx(uuid.NewString()), req)
		requireCode(t, err, codes.Unauthenticated)
		messages = append(messages, status.Convert(err).Message())
		t.Logf("%s: %v", name, err)
	}
	for _, m := range messages[1:] {
		assert.Equal(t, messages[0], m)
	}
}

func TestLoginRecordsDeviceAndSession(t *testing.T) {
	svc, fx := setupService(t, nil)
	user := seedUser(t, fx, testPhone, true, true)
	deviceID := uuid.NewString()

	pair, err := svc.Login(deviceCtx(deviceID), &auth.LoginRequest{Phone: testPhone, Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, fx.Clock.Now().Add(15*time.Minute), pair.AccessExpiresAt)

	claims, err := fx.App.Tokens.DecodeAccessToken(pair.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	var device db.UserDevice
	require.NoError(t, fx.App.DB.Where("user_id = ?", user.ID).First(&device).Error)
	assert.Equal(t, deviceID, device.DeviceID)
	assert.Equal(t, "ios", device.Platform)
	require.NotNil(t, device.LastIP)
	assert.Equal(t, "203.0.113.7", *device.LastIP)

	var session db.UserSession
	require.NoError(t, fx.App.DB.Where("user_id = ?", user.ID).First(&session).Error)
	require.NotNil(t, session.DeviceID)
	assert.Equal(t, device.ID, *session.DeviceID)
	assert.NotEqual(t, pair.RefreshToken, session.RefreshTokenHash)
	require.NotNil(t, session.UserAgent)
	assert.Equal(t, "pature-ios/2.1", *session.UserAgent)

	var reloaded db.User
	require.NoError(t, fx.App.DB.First(&reloaded, user.ID).Error)
	assert.NotNil(t, reloaded.LastLoginAt)

	// same device again refreshes the row instead of adding one
	_, err = svc.Login(deviceCtx(deviceID), &auth.LoginRequest{Phone: testPhone, Password: testPassword})
	require.NoError(t, err)
	var devices int64
	require.NoError(t, fx.App.DB.Model(&db.UserDevice{}).Where("user_id = ?", user.ID).Count(&devices).Error)
	assert.Equal(t, int64(1), devices)
	assert.Equal(t, int64(2), activeSessions(t, fx, user.ID))
}

func TestLoginWithoutDeviceHeaderUsesNilDevice(t *testing.T) {
	svc, fx := setupService(t, nil)
	user := seedUser(t, fx, testPhone, true, true)

	_, err := svc.Login(context.Background(), &auth.LoginRequest{Phone: testPhone, Password: testPassword})
	require.NoError(t, err)

	var device db.UserDevice
	require.NoError(t, fx.App.DB.Where("user_id = ?", user.ID).First(&device).Error)
	assert.Equal(t, uuid.Nil.String(), device.DeviceID)
	assert.Equal(t, server.DefaultPlatform, device.Platform)
}

func TestLoginRejectsMalformedDeviceID(t *testing.T) {
	svc, fx := setupService(t, nil)
	seedUser(t, fx, testPhone, true, true)

	_, err := svc.Login(deviceCtx("not-a-uuid"), &auth.LoginRequest{Phone: testPhone, Password: testPassword})
	requireCode(t, err, codes.InvalidArgument)
}

func TestRefreshRotatesSession(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, nil)
	user := seedUser(t, fx, testPhone, true, true)
	first := login(t, svc, testPhone)

	second, err := svc.Refresh(ctx, &auth.RefreshRequest{Phone: testPhone, RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, int64(1), activeSessions(t, fx, user.ID))

	// replaying the rotated token fails
	_, err = svc.Refresh(ctx, &auth.RefreshRequest{Phone: testPhone, RefreshToken: first.RefreshToken})
	requireCode(t, err, codes.Unauthenticated)

	_, err = svc.Refresh(ctx, &auth.RefreshRequest{Phone: testPhone, RefreshToken: second.RefreshToken})
	require.NoError(t, err)

	var rotated db.UserSession
	require.NoError(t, fx.App.DB.Order("id ASC").First(&rotated, "user_id = ?", user.ID).Error)
	require.NotNil(t, rotated.RevokeReason)
	assert.Equal(t, db.RevokeRotation, *rotated.RevokeReason)
}

func TestRefreshRequiresBothFields(t *testing.T) {
	svc, _ := setupService(t, nil)

	_, err := svc.Refresh(context.Background(), &auth.RefreshRequest{Phone: testPhone})
	requireCode(t, err, codes.InvalidArgument)
}

// TestRefreshFailuresLookAlike checks that an unknown phone, a disabled
// account, a bogus token and another user's token all get the same answer,
// so Refresh cannot be used to find registered phones.
func TestRefreshFailuresLookAlike(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, nil)
	seedUser(t, fx, testPhone, true, true)
	other := seedUser(t, fx, "+4915100000002", true, true)
	disabled := seedUser(t, fx, "+4915100000003", true, true)
	pair := login(t, svc, testPhone)
	disabledPair := login(t, svc, *disabled.Phone)
	require.NoError(t, fx.App.DB.Model(&db.User{}).Where("id = ?", disabled.ID).Update("is_active", false).Error)

	cases := []struct {
		name string
		req  *auth.RefreshRequest
	}{
		{"unknown phone", &auth.RefreshRequest{Phone: "+4915199999999", RefreshToken: "bogus-refresh-token"}},
		{"known phone, bogus token", &auth.RefreshRequest{Phone: testPhone, RefreshToken: "bogus-refresh-token"}},
		{"another user's token", &auth.RefreshRequest{Phone: *other.Phone, RefreshToken: pair.RefreshToken}},
		{"disabled account", &auth.RefreshRequest{Phone: *disabled.Phone, RefreshToken: disabledPair.RefreshToken}},
	}

	want := status.Convert(refreshErr(t, svc, cases[0].req))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := status.Convert(refreshErr(t, svc, tc.req))
			assert.Equal(t, codes.Unauthenticated, got.Code())
			assert.Equal(t, want.Message(), got.Message())
		})
	}

	// the legitimate owner is unaffected
	_, err := svc.Refresh(ctx, &auth.RefreshRequest{Phone: testPhone, RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
}

func refreshErr(t *testing.T, svc *auth.Service, req *auth.RefreshRequest) error {
	t.Helper()
	_, err := svc.Refresh(context.Background(), req)
	require.Error(t, err)
	return err
}

func TestRefreshExpiredSession(t *testing.T) {
	ctx := context.Background()
	svc, fx := setupService(t, nil)
	user := seedUser(t, fx, testPhone, true, true)
	pair := login(t, svc, testPhone)

	fx.Clock.Advance(31 * 24 * time.Hour)
	_, err := svc.Refresh(ctx, &auth.RefreshRequest{Phone: testPhone, RefreshToken: pair.RefreshToken})
	requireCode(t, err, codes.Unauthenticated)

	var s db.UserSession
	require.NoError(t, fx.App.DB.First(&s, "user_id = ?", user.ID).Error)
	require.NotNil(t, s.RevokeReason)
	assert.Equal(t, db.RevokeExpired, *s.RevokeReason)
}

func TestLogout(t *testing.T) {
	svc, fx := setupService(t, nil)
	user := seedUser(t, fx, testPhone, true, true)
	pair := login(t, svc, testPhone)
	ctx := server.WithUserID(context.Background(), user.ID)

	resp, err := svc.Logout(ctx, &auth.LogoutRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, auth.DetailOK, resp.Detail)
	assert.Equal(t, int64(0), activeSessions(t, fx, user.ID))

	resp, err = svc.Logout(ctx, &auth.LogoutRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, auth.DetailAlreadyLoggedOut, resp.Detail)

	_, err = svc.Logout(context.Background(), &auth.LogoutRequest{RefreshToken: pair.RefreshToken})
	requireCode(t, err, codes.Unauthenticated)
}

// TestLogoutRaceCountsOneRevocation logs the same session out from
// several callers at once; exactly one of them revokes it.
func TestLogoutRaceCountsOneRevocation(t *testing.T) {
	svc, fx := setupService(t, nil)
	user := seedUser(t, fx, testPhone, true, true)
	pair := login(t, svc, testPhone)
	ctx := server.WithUserID(context.Background(), user.ID)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		details = map[string]int{}
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Logout(ctx, &auth.LogoutRequest{RefreshToken: pair.RefreshToken})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			details[resp.Detail]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, details[auth.DetailOK])
	assert.Equal(t, callers-1, details[auth.DetailAlreadyLoggedOut])
	assert.Equal(t, int64(0), activeSessions(t, fx, user.ID))

	expected := `
# HELP pature_sessions_revoked_total Sessions revoked, by reason.
# TYPE pature_sessions_revoked_total counter
pature_sessions_revoked_total{reason="logout"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(fx.App.Metrics.Registry(), strings.NewReader(expected), "pature_sessions_revoked_total"))
}

func TestLogoutAllKeepsCurrentSession(t *testing.T) {
	svc, fx := setupService(t, nil)
	user := seedUser(t, fx, testPhone, true, true)
	current := login(t, svc, testPhone)
	login(t, svc, testPhone)
	login(t, svc, testPhone)
	ctx := server.WithUserID(context.Background(), user.ID)

	resp, err := svc.LogoutAll(ctx, &auth.LogoutAllRequest{RefreshToken: current.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Revoked)
	assert.Equal(t, 1, resp.ActiveSessions)
	assert.Equal(t, int64(1), activeSessions(t, fx, user.ID))

	_, err = svc.Refresh(context.Background(), &auth.RefreshRequest{Phone: testPhone, RefreshToken: current.RefreshToken})
	require.NoError(t, err)

	resp, err = svc.LogoutAll(ctx, &auth.LogoutAllRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Revoked)
	assert.Zero(t, resp.ActiveSessions)
	assert.Equal(t, int64(0), activeSessions(t, fx, user.ID))
}
