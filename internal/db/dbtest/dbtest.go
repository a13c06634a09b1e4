// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/pature/internal/db"
)

// Open returns a fresh schema on a single pooled connection, so every
// statement sees the same in-memory database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		TranslateError:         true,
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

// User inserts an active, verified user with the given phone.
func User(t testing.TB, database *gorm.DB, phone string) *db.User {
	t.Helper()
	p := phone
	email := phone + "@example.test"
	u := &db.User{Phone: &p, Email: &email, IsActive: true, IsEmailVerified: true}
	if err := database.Create(u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

// Animal inserts an active listing owned by ownerID.
func Animal(t testing.TB, database *gorm.DB, ownerID uint64) *db.Animal {
	t.Helper()
	a := &db.Animal{OwnerUserID: ownerID, Species: "dog", Status: db.AnimalStatusActive}
	if err := database.Create(a).Error; err != nil {
		t.Fatalf("failed to create animal: %v", err)
	}
	return a
}
