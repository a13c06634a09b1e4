package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/pature/internal/db"
	"github.com/oggyb/pature/internal/db/dbtest"
	apperrors "github.com/oggyb/pature/internal/errors"
	"github.com/oggyb/pature/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewUserRepository(database)

	u := &db.User{Phone: strPtr("+3001"), Email: strPtr("a@example.test"), PasswordHash: "h", IsActive: true}
	require.NoError(t, repo.Create(ctx, u))

	byPhone, err := repo.GetByPhone(ctx, "+3001")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byPhone.ID)
	assert.False(t, byPhone.IsEmailVerified)

	_, err = repo.GetByEmail(ctx, "missing@example.test")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	dup := &db.User{Phone: strPtr("+3001"), IsActive: true}
	assert.ErrorIs(t, repo.Create(ctx, dup), apperrors.ErrAlreadyExists)

	require.NoError(t, repo.MarkEmailVerified(ctx, u.ID))
	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "h2", nil))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEmailVerified)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Equal(t, "+3001", *got.Phone)
}

func TestUserRepositoryInactiveUserStaysInactive(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewUserRepository(database)

	u := &db.User{Phone: strPtr("+3002"), IsActive: false}
	require.NoError(t, repo.Create(ctx, u))

	active, err := repo.IsActive(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, active)

	active, err = repo.IsActive(ctx, u.ID+100)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestDeviceUpsert(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewDeviceRepository(database)
	user := dbtest.User(t, database, "+3003")
	now := time.Date(2025, 12, 10, 12, 0, 0, 0, time.UTC)
	devID := uuid.NewString()

	first, err := repo.Upsert(ctx, user.ID, repository.DeviceInfo{DeviceID: devID, Platform: "android", AppVersion: strPtr("1.0")}, now)
	require.NoError(t, err)
	assert.True(t, first.IsPushEnabled)

	second, err := repo.Upsert(ctx, user.ID, repository.DeviceInfo{DeviceID: devID, Platform: "ios", AppVersion: strPtr("1.1")}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "ios", second.Platform)
	assert.Equal(t, "1.1", *second.AppVersion)

	other, err := repo.Upsert(ctx, user.ID, repository.DeviceInfo{DeviceID: uuid.NewString(), Platform: "android"}, now)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestAnimalOwnerOf(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewAnimalRepository(database)
	owner := dbtest.User(t, database, "+3004")

	a := &db.Animal{OwnerUserID: owner.ID, Species: "cat"}
	require.NoError(t, repo.Create(ctx, a))
	assert.Equal(t, db.AnimalStatusActive, a.Status)

	id, ok, err := repo.OwnerOf(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, owner.ID, id)

	_, ok, err = repo.OwnerOf(ctx, a.ID+1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Get(ctx, a.ID+1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVerificationCodes(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewVerificationRepository(database)
	user := dbtest.User(t, database, "+3005")
	now := time.Date(2025, 12, 10, 12, 0, 0, 0, time.UTC)

	expired := &db.EmailVerificationCode{UserID: user.ID, Email: "v@example.test", Purpose: db.PurposeRegister, CodeHash: "x", ExpiresAt: now.Add(-time.Minute), MaxAttempts: 5, CreatedAt: now.Add(-20 * time.Minute)}
	require.NoError(t, repo.Create(ctx, expired))
	fresh := &db.EmailVerificationCode{UserID: user.ID, Email: "v@example.test", Purpose: db.PurposeRegister, CodeHash: "y", ExpiresAt: now.Add(15 * time.Minute), MaxAttempts: 2, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, fresh))

	got, err := repo.LatestActive(ctx, user.ID, "v@example.test", db.PurposeRegister, now)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)

	for i := 0; i < 2; i++ {
		ok, err := repo.ClaimAttempt(ctx, fresh.ID)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := repo.ClaimAttempt(ctx, fresh.ID)
	require.NoError(t, err)
	assert.False(t, ok, "budget is spent")

	got, err = repo.LatestActive(ctx, user.ID, "v@example.test", db.PurposeRegister, now)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AttemptCount)

	require.NoError(t, repo.Consume(ctx, fresh.ID, now))
	assert.ErrorIs(t, repo.Consume(ctx, fresh.ID, now), apperrors.ErrNotFound)

	ok, err = repo.ClaimAttempt(ctx, expired.ID)
	require.NoError(t, err)
	assert.True(t, ok, "expiry is checked by the caller")
	require.NoError(t, repo.Consume(ctx, expired.ID, now))
	ok, err = repo.ClaimAttempt(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, ok, "consumed codes take no attempts")

	_, err = repo.LatestActive(ctx, user.ID, "v@example.test", db.PurposeRegister, now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	recent, err := repo.Recent(ctx, user.ID, db.PurposeRegister, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
