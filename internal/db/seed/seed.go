// Package seed fills a development database with owners, listings,
// reactions and the matches they imply.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/pature/internal/credential"
	"github.com/oggyb/pature/internal/db"
	"github.com/oggyb/pature/internal/logger"
	"github.com/oggyb/pature/internal/matching"
	"github.com/oggyb/pature/internal/repository"
)

// Password is shared by every seeded account.
const Password = "password123"

var (
	species = []string{"dog", "cat", "rabbit", "parrot", "ferret"}
	names   = []string{"Bella", "Max", "Luna", "Charlie", "Milo", "Daisy", "Rocky", "Nala", "Oscar", "Kiwi"}
	cities  = []string{"Berlin", "Hamburg", "Munich", "Cologne"}
)

// Options controls the size of the generated data set.
type Options struct {
	Users      int
	BcryptCost int
	Rand       *rand.Rand
}

// Result summarizes what was written.
type Result struct {
	Users     int
	Animals   int
	Reactions int
	Matches   int
}

// Run resets the database and populates it with demo data.
//
// Behavior:
//  1. Clears every table in reverse migration order.
//  2. Creates opts.Users verified accounts, phone +4915100000NNN.
//  3. Gives each user one or two active listings.
//  4. Generates reactions with ~70% likes; every 3rd like is answered so
//     that matches exist. Matches go through the match engine.
func Run(ctx context.Context, database *gorm.DB, log *slog.Logger, opts Options) (Result, error) {
	start := time.Now()
	if opts.Users <= 0 {
		opts.Users = 20
	}
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}

	if err := reset(database); err != nil {
		return Result{}, err
	}
	log.Info("cleared existing data")

	users := repository.NewUserRepository(database)
	animals := repository.NewAnimalRepository(database)
	reactions := repository.NewReactionRepository(database)
	engine := matching.NewEngine(animals, reactions, repository.NewMatchRepository(database))

	digest, err := credential.HashPassword(Password, opts.BcryptCost)
	if err != nil {
		return Result{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var res Result
	owned := map[uint64][]uint64{}
	var ids []uint64
	for i := 1; i <= opts.Users; i++ {
		phone := fmt.Sprintf("+4915100000%03d", i)
		email := fmt.Sprintf("user%d@example.com", i)
		u := &db.User{
			Phone:           &phone,
			Email:           &email,
			PasswordHash:    digest,
			IsActive:        true,
			IsEmailVerified: true,
		}
		if err := users.Create(ctx, u); err != nil {
			return res, fmt.Errorf("failed to seed user: %w", err)
		}
		ids = append(ids, u.ID)
		res.Users++

		for j := 0; j < 1+r.Intn(2); j++ {
			name := names[r.Intn(len(names))]
			city := cities[r.Intn(len(cities))]
			a := &db.Animal{
				OwnerUserID: u.ID,
				Name:        &name,
				Species:     species[r.Intn(len(species))],
				City:        &city,
			}
			if err := animals.Create(ctx, a); err != nil {
				return res, fmt.Errorf("failed to seed animal: %w", err)
			}
			owned[u.ID] = append(owned[u.ID], a.ID)
			res.Animals++
		}
	}
	log.Info("seeded users and animals", "users", res.Users, "animals", res.Animals)

	react := func(from, animalID uint64, result string) error {
		if _, err := reactions.Record(ctx, from, animalID, result); err != nil {
			return fmt.Errorf("failed to seed reaction: %w", err)
		}
		res.Reactions++
		if result != db.ResultLike {
			return nil
		}
		_, created, err := engine.OnLikeRecorded(ctx, from, animalID)
		if err != nil {
			return fmt.Errorf("failed to seed match: %w", err)
		}
		if created {
			res.Matches++
		}
		return nil
	}

	counter := 0
	for _, from := range ids {
		for j := 0; j < 6; j++ {
			to := ids[r.Intn(len(ids))]
			if to == from {
				continue
			}
			target := owned[to][r.Intn(len(owned[to]))]

			result := db.ResultDislike
			if r.Intn(100) < 70 {
				result = db.ResultLike
			}
			if err := react(from, target, result); err != nil {
				return res, err
			}

			// guarantee a reciprocal like every 3rd like
			if result == db.ResultLike {
				if counter%3 == 0 {
					back := owned[from][r.Intn(len(owned[from]))]
					if err := react(to, back, db.ResultLike); err != nil {
						return res, err
					}
				}
				counter++
			}
		}
	}
	log.Info("seeded reactions", "reactions", res.Reactions, "matches", res.Matches, logger.Since(start))

	return res, nil
}

func reset(database *gorm.DB) error {
	models := db.Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := database.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(models[i]).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", models[i], err)
		}
	}

	// Reset auto-increment sequences
	stmt := &gorm.Statement{DB: database}
	for _, m := range models {
		if err := stmt.Parse(m); err != nil {
			return err
		}
		table := stmt.Schema.Table
		switch database.Dialector.Name() {
		case "mysql":
			database.Exec(fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = 1", table))
		case "sqlite":
			database.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table)
		}
	}
	return nil
}
