package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/pature/internal/db"
	"github.com/oggyb/pature/internal/db/dbtest"
	"github.com/oggyb/pature/internal/matching"
	"github.com/oggyb/pature/internal/repository"
)

func mustPair(t *testing.T, a, b uint64) matching.Pair {
	t.Helper()
	p, err := matching.NormalizePair(a, b)
	require.NoError(t, err)
	return p
}

func countMatches(t *testing.T, database *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, database.Model(&db.UserMatch{}).Count(&n).Error)
	return n
}

func TestGetOrCreateMatch(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewMatchRepository(database)

	m, created, err := repo.GetOrCreate(ctx, mustPair(t, 2, 1))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(1), m.UserID1)
	assert.Equal(t, uint64(2), m.UserID2)

	again, created, err := repo.GetOrCreate(ctx, mustPair(t, 1, 2))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, again.ID)

	assert.Equal(t, int64(1), countMatches(t, database))
}

func TestGetOrCreateMatchLosesInsertRace(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewMatchRepository(database)

	// a competing request inserts the same pair between our select and insert
	var once sync.Once
	err := database.Callback().Create().Before("gorm:create").Register("test:competing_match", func(tx *gorm.DB) {
		if tx.Statement.Table != "user_matches" {
			return
		}
		once.Do(func() {
			require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).
				Exec("INSERT INTO user_matches (user_id1, user_id2, created_at) VALUES (?, ?, ?)", 3, 7, time.Now().UTC()).
				Error)
		})
	})
	require.NoError(t, err)

	m, created, err := repo.GetOrCreate(ctx, mustPair(t, 7, 3))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint64(3), m.UserID1)
	assert.Equal(t, uint64(7), m.UserID2)
	assert.Equal(t, int64(1), countMatches(t, database))
}

func TestGetOrCreateMatchConcurrent(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewMatchRepository(database)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[uint64]struct{}{}
	)
	for i := 0; i < workers; i++ {
		a, b := uint64(10), uint64(20)
		if i%2 == 1 {
			a, b = b, a
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := matching.NormalizePair(a, b)
			if !assert.NoError(t, err) {
				return
			}
			m, c, err := repo.GetOrCreate(ctx, pair)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if c {
				created++
			}
			ids[m.ID] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
	assert.Equal(t, int64(1), countMatches(t, database))
}

func TestGetOrCreateMatchRejectsZeroPair(t *testing.T) {
	repo := repository.NewMatchRepository(dbtest.Open(t))

	_, _, err := repo.GetOrCreate(context.Background(), matching.Pair{})
	assert.Error(t, err)
}

func TestUserMatchOrderIsEnforcedBySchema(t *testing.T) {
	database := dbtest.Open(t)

	err := database.Create(&db.UserMatch{UserID1: 9, UserID2: 4}).Error
	assert.Error(t, err)
	assert.False(t, db.IsUniqueViolation(err))
}

func TestListMatchesForUser(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := repository.NewMatchRepository(database)

	for _, other := range []uint64{2, 3, 4} {
		_, _, err := repo.GetOrCreate(ctx, mustPair(t, 1, other))
		require.NoError(t, err)
	}
	_, _, err := repo.GetOrCreate(ctx, mustPair(t, 2, 3))
	require.NoError(t, err)

	page, next, err := repo.ListForUser(ctx, 1, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.NotEmpty(t, next)
	assert.Equal(t, uint64(4), page[0].Other(1))
	assert.Equal(t, uint64(3), page[1].Other(1))

	rest, next, err := repo.ListForUser(ctx, 1, next, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Empty(t, next)
	assert.Equal(t, uint64(2), rest[0].Other(1))
}
