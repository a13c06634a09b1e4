package main

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/oggyb/pature/internal/config"
	"github.com/oggyb/pature/internal/db"
	"github.com/oggyb/pature/internal/db/seed"
	"github.com/oggyb/pature/internal/logger"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}
	defer db.Close(database)

	res, err := seed.Run(context.Background(), database, log, seed.Options{
		BcryptCost: cfg.Auth.BcryptCost,
		Rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	})
	if err != nil {
		log.Error("failed to seed", "err", err)
		db.Close(database)
		os.Exit(1)
	}

	log.Info("seeding completed", "users", res.Users, "animals", res.Animals, "matches", res.Matches)
}
