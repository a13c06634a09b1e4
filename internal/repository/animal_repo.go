package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/pature/internal/db"
	apperrors "github.com/oggyb/pature/internal/errors"
)

// AnimalRepository resolves listings for reactions and matching.
type AnimalRepository struct {
	db *gorm.DB
}

func NewAnimalRepository(database *gorm.DB) *AnimalRepository {
	return &AnimalRepository{db: database}
}

func (r *AnimalRepository) Create(ctx context.Context, a *db.Animal) error {
	if a.Status == "" {
		a.Status = db.AnimalStatusActive
	}
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create animal: %w", err)
	}
	return nil
}

func (r *AnimalRepository) Get(ctx context.Context, id uint64) (*db.Animal, error) {
	var a db.Animal
	err := r.db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get animal: %w", err)
	}
	return &a, nil
}

// OwnerOf returns the owner of animalID; ok is false when the listing
// does not exist.
func (r *AnimalRepository) OwnerOf(ctx context.Context, animalID uint64) (uint64, bool, error) {
	var owners []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Animal{}).
		Where("id = ?", animalID).
		Limit(1).
		Pluck("owner_user_id", &owners).Error
	if err != nil {
		return 0, false, fmt.Errorf("animal owner: %w", err)
	}
	if len(owners) == 0 {
		return 0, false, nil
	}
	return owners[0], true, nil
}
