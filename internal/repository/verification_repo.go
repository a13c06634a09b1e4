package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/pature/internal/db"
	apperrors "github.com/oggyb/pature/internal/errors"
)

// VerificationRepository stores hashed e-mail verification codes.
type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(database *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *VerificationRepository) WithTx(tx *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: tx}
}

func (r *VerificationRepository) Create(ctx context.Context, c *db.EmailVerificationCode) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create verification code: %w", err)
	}
	return nil
}

// Recent returns up to limit codes for the user and purpose, newest first.
func (r *VerificationRepository) Recent(ctx context.Context, userID uint64, purpose string, limit int) ([]db.EmailVerificationCode, error) {
	var codes []db.EmailVerificationCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Order("id DESC").
		Limit(limit).
		Find(&codes).Error
	return codes, err
}

// LatestActive returns the newest unconsumed, unexpired code for email.
func (r *VerificationRepository) LatestActive(ctx context.Context, userID uint64, email, purpose string, now time.Time) (*db.EmailVerificationCode, error) {
	var codes []db.EmailVerificationCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND email = ? AND purpose = ? AND consumed_at IS NULL", userID, email, purpose).
		Order("id DESC").
		Find(&codes).Error
	if err != nil {
		return nil, fmt.Errorf("load verification codes: %w", err)
	}
	for i := range codes {
		if codes[i].ExpiresAt.After(now) {
			return &codes[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// ClaimAttempt spends one attempt on an unconsumed code. It reports false
// when the budget is already used up, so concurrent guesses can never
// exceed max_attempts.
func (r *VerificationRepository) ClaimAttempt(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.EmailVerificationCode{}).
		Where("id = ? AND consumed_at IS NULL AND attempt_count < max_attempts", id).
		Update("attempt_count", gorm.Expr("attempt_count + 1"))
	if res.Error != nil {
		return false, fmt.Errorf("claim verification attempt: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Consume marks the code used. A code can be consumed once.
func (r *VerificationRepository) Consume(ctx context.Context, id uint64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&db.EmailVerificationCode{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at)
	if res.Error != nil {
		return fmt.Errorf("consume verification code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
