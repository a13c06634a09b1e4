// Package apptest wires an AppContext against in-memory SQLite and
// miniredis for service tests.
package apptest

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/oggyb/pature/internal/app"
	"github.com/oggyb/pature/internal/cache"
	"github.com/oggyb/pature/internal/config"
	"github.com/oggyb/pature/internal/db/dbtest"
	"github.com/oggyb/pature/internal/events"
	"github.com/oggyb/pature/internal/logger"
	"github.com/oggyb/pature/internal/notify"
	"github.com/oggyb/pature/internal/token"
)

// Clock is a settable clock shared by everything in the fixture.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Fixture exposes the fakes behind the AppContext.
type Fixture struct {
	App      *app.AppContext
	Redis    *miniredis.Miniredis
	Clock    *Clock
	Events   *events.Recorder
	Notifier *notify.Capture
}

// Config returns settings suitable for tests: cheap bcrypt, rate limit
// off, short-lived tokens.
func Config() *config.Config {
	cfg := &config.Config{}
	cfg.App.ENV = "test"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Algorithm = "HS256"
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.Auth.RefreshTTL = 30 * 24 * time.Hour
	cfg.Auth.BcryptCost = 4
	cfg.Verification.CodeTTL = 15 * time.Minute
	cfg.Verification.MaxAttempts = 5
	cfg.Verification.ResendCooldown = time.Minute
	cfg.Verification.ResendMaxPerHour = 5
	cfg.RateLimit.RequestsPerMinute = 60
	cfg.RateLimit.BlockTTL = 10 * time.Minute
	return cfg
}

// New builds a fixture. mutate may adjust the config before wiring.
func New(t testing.TB, mutate func(*config.Config)) *Fixture {
	t.Helper()

	cfg := Config()
	if mutate != nil {
		mutate(cfg)
	}

	mr := miniredis.RunT(t)
	cfg.Redis.Addr = mr.Addr()
	rdb := cache.NewRedisCache(cfg)

	appCtx, err := app.New(cfg, dbtest.Open(t), rdb, logger.Discard())
	if err != nil {
		t.Fatalf("failed to build app context: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	clk := &Clock{now: time.Now().UTC().Truncate(time.Millisecond)}
	rec := &events.Recorder{}
	capture := &notify.Capture{}

	issuer, err := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.AccessTTL, clk)
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}

	appCtx.Clock = clk
	appCtx.Tokens = issuer
	appCtx.Events = rec
	appCtx.Notifier = capture

	return &Fixture{App: appCtx, Redis: mr, Clock: clk, Events: rec, Notifier: capture}
}
