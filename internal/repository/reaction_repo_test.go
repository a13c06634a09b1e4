package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/pature/internal/db"
	"github.com/oggyb/pature/internal/db/dbtest"
	apperrors "github.com/oggyb/pature/internal/errors"
	"github.com/oggyb/pature/internal/repository"
)

func TestRecordReactionOverwrites(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewReactionRepository(database)

	// insert like
	first, err := repo.Record(ctx, 1, 10, db.ResultLike)
	require.NoError(t, err)
	assert.Equal(t, db.ResultLike, first.Result)

	// overwrite with dislike
	second, err := repo.Record(ctx, 1, 10, db.ResultDislike)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, db.ResultDislike, second.Result)

	// and back again
	third, err := repo.Record(ctx, 1, 10, db.ResultLike)
	require.NoError(t, err)
	assert.Equal(t, db.ResultLike, third.Result)

	var n int64
	require.NoError(t, database.Model(&db.AnimalLike{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestRecordReactionRejectsUnknownResult(t *testing.T) {
	repo := repository.NewReactionRepository(dbtest.Open(t))

	_, err := repo.Record(context.Background(), 1, 10, "superlike")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestHasLikedAnyOwnedBy(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewReactionRepository(database)

	alice := dbtest.User(t, database, "+1001")
	bob := dbtest.User(t, database, "+1002")
	aliceDog := dbtest.Animal(t, database, alice.ID)
	dbtest.Animal(t, database, bob.ID)

	ok, err := repo.HasLikedAnyOwnedBy(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Record(ctx, bob.ID, aliceDog.ID, db.ResultDislike)
	require.NoError(t, err)
	ok, err = repo.HasLikedAnyOwnedBy(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok, "dislike must not count as reciprocity")

	_, err = repo.Record(ctx, bob.ID, aliceDog.ID, db.ResultLike)
	require.NoError(t, err)
	ok, err = repo.HasLikedAnyOwnedBy(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// direction matters
	ok, err = repo.HasLikedAnyOwnedBy(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListOutgoingAndIncoming(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewReactionRepository(database)

	owner := dbtest.User(t, database, "+2001")
	fan := dbtest.User(t, database, "+2002")
	other := dbtest.User(t, database, "+2003")

	a1 := dbtest.Animal(t, database, owner.ID)
	a2 := dbtest.Animal(t, database, owner.ID)
	a3 := dbtest.Animal(t, database, owner.ID)

	for _, a := range []*db.Animal{a1, a2, a3} {
		_, err := repo.Record(ctx, fan.ID, a.ID, db.ResultLike)
		require.NoError(t, err)
	}
	_, err := repo.Record(ctx, other.ID, a1.ID, db.ResultDislike)
	require.NoError(t, err)

	out, next, err := repo.ListOutgoing(ctx, fan.ID, "", 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEmpty(t, next)
	assert.Equal(t, a3.ID, out[0].AnimalID)
	require.NotNil(t, out[0].Animal)
	assert.Equal(t, owner.ID, out[0].Animal.OwnerUserID)

	out, next, err = repo.ListOutgoing(ctx, fan.ID, next, 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Empty(t, next)
	assert.Equal(t, a1.ID, out[0].AnimalID)

	in, _, err := repo.ListIncoming(ctx, owner.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, in, 3)
	for _, l := range in {
		require.NotNil(t, l.FromUser)
		assert.Equal(t, fan.ID, l.FromUser.ID)
	}

	count, err := repo.CountIncoming(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = repo.CountIncoming(ctx, fan.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListRejectsBadPageToken(t *testing.T) {
	repo := repository.NewReactionRepository(dbtest.Open(t))

	_, _, err := repo.ListOutgoing(context.Background(), 1, "%%%", 10)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}
