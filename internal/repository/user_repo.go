package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/pature/internal/db"
	apperrors "github.com/oggyb/pature/internal/errors"
)

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("create user: %w", apperrors.ErrAlreadyExists)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*db.User, error) {
	return r.first(ctx, "phone = ?", phone)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) first(ctx context.Context, where string, arg interface{}) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).Where(where, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// UpdatePassword replaces the stored password digest and, when phone is
// non-nil, the phone number given at re-registration.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uint64, digest string, phone *string) error {
	updates := map[string]interface{}{"password_hash": digest}
	if phone != nil {
		updates["phone"] = *phone
	}
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Updates(updates).Error
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("update user: %w", apperrors.ErrAlreadyExists)
	}
	return err
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&db.User{}).
		Where("id = ?", id).
		Update("is_email_verified", true).Error
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&db.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// IsActive reports whether the user exists and is not disabled.
func (r *UserRepository) IsActive(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}
