package app

import (
	"fmt"
	"log/slog"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/oggyb/pature/internal/cache"
	"github.com/oggyb/pature/internal/config"
	"github.com/oggyb/pature/internal/credential"
	"github.com/oggyb/pature/internal/db"
	"github.com/oggyb/pature/internal/events"
	"github.com/oggyb/pature/internal/metrics"
	"github.com/oggyb/pature/internal/notify"
	"github.com/oggyb/pature/internal/token"
	"github.com/oggyb/pature/internal/utils/clock"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
// built once at startup and handed to every service.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger

	Clock    clock.Clock
	Hasher   credential.Hasher
	Tokens   *token.Issuer
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Notifier notify.CodeSender
}

// New creates a new AppContext. Events default to a no-op publisher and
// verification codes go to the log; callers replace either as needed.
func New(cfg *config.Config, database *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) (*AppContext, error) {
	clk := clock.System()
	issuer, err := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.AccessTTL, clk)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	return &AppContext{
		Config:     cfg,
		DB:         database,
		RedisCache: rdb,
		Logger:     logger,
		Clock:      clk,
		Hasher:     credential.Bcrypt{Cost: cfg.Auth.BcryptCost},
		Tokens:     issuer,
		Events:     events.Nop{},
		Metrics:    metrics.New(),
		Notifier:   notify.LogSender{Logger: logger, Reveal: cfg.IsDevelopment()},
	}, nil
}

// Close releases every external resource and reports all failures.
func (a *AppContext) Close() error {
	var err error
	if a.Events != nil {
		err = multierr.Append(err, a.Events.Close())
	}
	if a.RedisCache != nil {
		err = multierr.Append(err, a.RedisCache.Close())
	}
	err = multierr.Append(err, db.Close(a.DB))
	return err
}
