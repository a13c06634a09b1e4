package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/pature/internal/db"
	"github.com/oggyb/pature/internal/matching"
	"github.com/oggyb/pature/internal/utils/pagination"
)

// MatchRepository stores confirmed matches keyed by a normalized pair.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// Find returns the match for pair, or nil when none exists.
func (r *MatchRepository) Find(ctx context.Context, pair matching.Pair) (*db.UserMatch, error) {
	var m db.UserMatch
	err := r.db.WithContext(ctx).
		Where("user_id1 = ? AND user_id2 = ?", pair.Lo(), pair.Hi()).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	return &m, nil
}

// GetOrCreate returns the match for pair, inserting it when absent.
// created is true only for the call whose insert landed. A concurrent
// insert of the same pair surfaces as a unique violation, which resolves
// to the existing row with created=false; any other error is returned.
func (r *MatchRepository) GetOrCreate(ctx context.Context, pair matching.Pair) (*db.UserMatch, bool, error) {
	if pair.IsZero() {
		return nil, false, errors.New("match pair is not normalized")
	}

	existing, err := r.Find(ctx, pair)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	m := db.UserMatch{UserID1: pair.Lo(), UserID2: pair.Hi()}
	err = r.db.WithContext(ctx).Create(&m).Error
	switch {
	case err == nil:
		return &m, true, nil
	case db.IsUniqueViolation(err):
		existing, err = r.Find(ctx, pair)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, errors.New("match vanished after unique violation")
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("create match: %w", err)
	}
}

// ListForUser returns matches userID takes part in, newest first.
func (r *MatchRepository) ListForUser(
	ctx context.Context,
	userID uint64,
	pageToken string,
	limit int,
) ([]db.UserMatch, string, error) {
	cursor, err := decodeCursor(pageToken)
	if err != nil {
		return nil, "", err
	}
	limit = pagination.Limit(limit)

	query := r.db.WithContext(ctx).
		Where("(user_id1 = ? OR user_id2 = ?)", userID, userID)
	if cursor.ID > 0 {
		query = query.Where("id < ?", cursor.ID)
	}

	var matches []db.UserMatch
	if err := query.Order("id DESC").Limit(limit + 1).Find(&matches).Error; err != nil {
		return nil, "", err
	}

	var next string
	if len(matches) > limit {
		matches = matches[:limit]
		next, _ = pagination.Encode(pagination.Cursor{ID: matches[limit-1].ID})
	}
	return matches, next, nil
}
