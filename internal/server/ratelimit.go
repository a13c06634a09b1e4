package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oggyb/pature/internal/cache"
	"github.com/oggyb/pature/internal/config"
	"github.com/oggyb/pature/internal/metrics"
	"github.com/oggyb/pature/internal/utils/clock"
)

// rateWindowTTL outlives the one-minute window so late increments in the
// same minute still find the key.
const rateWindowTTL = 65 * time.Second

// RateLimitInterceptor throttles callers per client IP with a fixed
// one-minute window. Going over the limit blocks the IP for BlockTTL.
// Redis failures let the request through.
func RateLimitInterceptor(
	rdb *cache.RedisCache,
	cfg *config.Config,
	clk clock.Clock,
	m *metrics.Metrics,
	log *slog.Logger,
) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !cfg.RateLimit.Enabled || rdb == nil {
			return handler(ctx, req)
		}

		ip := ClientIP(ctx)
		blocked, err := rdb.Exists(ctx, rdb.KeyForRateBlock(ip))
		if err != nil {
			log.Warn("rate limit: redis unavailable", "err", err)
			return handler(ctx, req)
		}
		if blocked {
			m.RateLimited()
			return nil, status.Error(codes.ResourceExhausted, "too many requests")
		}

		n, err := rdb.IncrWithTTL(ctx, rdb.KeyForRateWindow(ip, clk.Now()), rateWindowTTL)
		if err != nil {
			log.Warn("rate limit: redis unavailable", "err", err)
			return handler(ctx, req)
		}
		if n > int64(cfg.RateLimit.RequestsPerMinute) {
			if err := rdb.Set(ctx, rdb.KeyForRateBlock(ip), "1", cfg.RateLimit.BlockTTL); err != nil {
				log.Warn("rate limit: failed to set block", "ip", ip, "err", err)
			}
			log.Info("rate limit: ip blocked", "ip", ip, "method", info.FullMethod, "count", n)
			m.RateLimited()
			return nil, status.Error(codes.ResourceExhausted, "too many requests")
		}

		return handler(ctx, req)
	}
}
