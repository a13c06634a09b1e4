package app

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/pature/internal/cache"
	"github.com/oggyb/pature/internal/config"
	"github.com/oggyb/pature/internal/events"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "s"
	cfg.JWT.Algorithm = "HS256"
	cfg.JWT.AccessTTL = time.Minute
	cfg.Auth.BcryptCost = 4
	return cfg
}

type failingPublisher struct{ events.Nop }

func (failingPublisher) Close() error { return errors.New("amqp close failed") }

func TestNewRejectsBadTokenConfig(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Secret = ""

	_, err := New(cfg, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestCloseCollectsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()

	a, err := New(cfg, nil, cache.NewRedisCache(cfg), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.IsType(t, events.Nop{}, a.Events)
	require.NotNil(t, a.Tokens)

	a.Events = failingPublisher{}
	err = a.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amqp close failed")
}
