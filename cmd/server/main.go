package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/pature/internal/app"
	"github.com/oggyb/pature/internal/cache"
	"github.com/oggyb/pature/internal/config"
	"github.com/oggyb/pature/internal/db"
	"github.com/oggyb/pature/internal/db/seed"
	"github.com/oggyb/pature/internal/events"
	"github.com/oggyb/pature/internal/logger"
	"github.com/oggyb/pature/internal/server"
	"github.com/oggyb/pature/internal/service/auth"
	"github.com/oggyb/pature/internal/service/reaction"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return err
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		_ = db.Close(database)
		return err
	}

	appCtx, err := app.New(cfg, database, redisCache, log)
	if err != nil {
		_ = redisCache.Close()
		_ = db.Close(database)
		return err
	}
	defer func() {
		if err := appCtx.Close(); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	if cfg.AMQP.URL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Error("failed to connect to rabbitmq", "err", err)
			return err
		}
		appCtx.Events = pub
		log.Info("publishing match events", "queue", cfg.AMQP.Queue)
	}

	if cfg.IsDevelopment() {
		_, err := seed.Run(ctx, database, log, seed.Options{
			BcryptCost: cfg.Auth.BcryptCost,
			Rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		})
		if err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	grpcServer := server.NewGRPCServer(appCtx,
		auth.NewRegistrar(appCtx),
		reaction.NewRegistrar(appCtx),
	)
	lis, err := server.Listen(appCtx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting gRPC server", "addr", lis.Addr().String())
		return grpcServer.Serve(lis)
	})

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", appCtx.Metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info("starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		grpcServer.GracefulStop()
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}
