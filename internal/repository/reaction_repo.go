package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/pature/internal/db"
	apperrors "github.com/oggyb/pature/internal/errors"
	"github.com/oggyb/pature/internal/utils/pagination"
)

// ReactionRepository provides data access methods for the AnimalLike model.
// It encapsulates all queries related to likes/dislikes on listings.
type ReactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new repository bound to the given DB connection.
func NewReactionRepository(database *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: database}
}

// Record inserts or overwrites the reaction of fromUserID on animalID.
//
// Behavior:
//   - If (from_user_id, animal_id) exists → result and updated_at are overwritten.
//   - If it doesn’t exist → a new row is inserted.
//   - result must be "like" or "dislike", anything else is ErrInvalidArgument.
//
// Owner checks belong to the caller; the store accepts any pair.
func (r *ReactionRepository) Record(
	ctx context.Context,
	fromUserID, animalID uint64,
	result string,
) (*db.AnimalLike, error) {
	if result != db.ResultLike && result != db.ResultDislike {
		return nil, fmt.Errorf("reaction result %q: %w", result, apperrors.ErrInvalidArgument)
	}

	like := db.AnimalLike{
		FromUserID: fromUserID,
		AnimalID:   animalID,
		Result:     result,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "animal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"result", "updated_at"}),
		}).
		Create(&like).Error
	if err != nil {
		return nil, fmt.Errorf("record reaction: %w", err)
	}

	return r.Get(ctx, fromUserID, animalID)
}

// Get returns the current reaction of fromUserID on animalID.
func (r *ReactionRepository) Get(ctx context.Context, fromUserID, animalID uint64) (*db.AnimalLike, error) {
	var like db.AnimalLike
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND animal_id = ?", fromUserID, animalID).
		First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// ownedBy selects the ids of listings owned by ownerID.
func (r *ReactionRepository) ownedBy(ownerID uint64) *gorm.DB {
	return r.db.Model(&db.Animal{}).Select("id").Where("owner_user_id = ?", ownerID)
}

// HasLikedAnyOwnedBy reports whether likerID currently likes at least one
// listing owned by ownerID. Used for the reciprocity check.
func (r *ReactionRepository) HasLikedAnyOwnedBy(
	ctx context.Context,
	likerID, ownerID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.AnimalLike{}).
		Where("from_user_id = ? AND result = ? AND animal_id IN (?)", likerID, db.ResultLike, r.ownedBy(ownerID)).
		Count(&count).Error
	return count > 0, err
}

// ListOutgoing returns listings userID liked, newest first, with the
// animal preloaded.
func (r *ReactionRepository) ListOutgoing(
	ctx context.Context,
	userID uint64,
	pageToken string,
	limit int,
) ([]db.AnimalLike, string, error) {
	query := r.db.WithContext(ctx).
		Preload("Animal").
		Where("from_user_id = ? AND result = ?", userID, db.ResultLike)
	return r.page(query, pageToken, limit)
}

// ListIncoming returns likes on listings owned by ownerID, newest first,
// with the animal and the liker preloaded.
func (r *ReactionRepository) ListIncoming(
	ctx context.Context,
	ownerID uint64,
	pageToken string,
	limit int,
) ([]db.AnimalLike, string, error) {
	query := r.db.WithContext(ctx).
		Preload("Animal").
		Preload("FromUser").
		Where("result = ? AND animal_id IN (?)", db.ResultLike, r.ownedBy(ownerID))
	return r.page(query, pageToken, limit)
}

// CountIncoming returns how many likes listings of ownerID have received.
// Used in conjunction with Redis cache (DB is fallback).
func (r *ReactionRepository) CountIncoming(ctx context.Context, ownerID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.AnimalLike{}).
		Where("result = ? AND animal_id IN (?)", db.ResultLike, r.ownedBy(ownerID)).
		Count(&count).Error
	return count, err
}

func (r *ReactionRepository) page(query *gorm.DB, pageToken string, limit int) ([]db.AnimalLike, string, error) {
	cursor, err := decodeCursor(pageToken)
	if err != nil {
		return nil, "", err
	}
	limit = pagination.Limit(limit)

	if cursor.ID > 0 {
		query = query.Where("id < ?", cursor.ID)
	}

	var likes []db.AnimalLike
	if err := query.Order("id DESC").Limit(limit + 1).Find(&likes).Error; err != nil {
		return nil, "", err
	}

	// pagination: build next cursor if needed
	var next string
	if len(likes) > limit {
		likes = likes[:limit]
		next, _ = pagination.Encode(pagination.Cursor{ID: likes[limit-1].ID})
	}
	return likes, next, nil
}

func decodeCursor(token string) (pagination.Cursor, error) {
	c, err := pagination.Decode(token)
	if err != nil {
		return c, fmt.Errorf("%v: %w", err, apperrors.ErrInvalidArgument)
	}
	return c, nil
}
