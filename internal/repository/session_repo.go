package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/pature/internal/credential"
	"github.com/oggyb/pature/internal/db"
	apperrors "github.com/oggyb/pature/internal/errors"
	"github.com/oggyb/pature/internal/utils/clock"
)

// NewSession describes a refresh-token session to persist.
type NewSession struct {
	UserID       uint64
	DeviceID     *uint64
	RefreshPlain string
	TTL          time.Duration
	IP           *string
	UserAgent    *string
}

// SessionRepository is the session ledger: one row per issued refresh
// token. Rows move from active to revoked and never back.
type SessionRepository struct {
	db     *gorm.DB
	hasher credential.Hasher
	clock  clock.Clock
}

func NewSessionRepository(database *gorm.DB, hasher credential.Hasher, clk clock.Clock) *SessionRepository {
	if clk == nil {
		clk = clock.System()
	}
	return &SessionRepository{db: database, hasher: hasher, clock: clk}
}

// Create hashes the refresh token and inserts an active session.
func (r *SessionRepository) Create(ctx context.Context, in NewSession) (*db.UserSession, error) {
	s, err := r.build(in)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) build(in NewSession) (*db.UserSession, error) {
	digest, err := r.hasher.Hash(in.RefreshPlain)
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}
	now := r.clock.Now()
	return &db.UserSession{
		UserID:           in.UserID,
		DeviceID:         in.DeviceID,
		RefreshTokenHash: digest,
		RefreshExpiresAt: now.Add(in.TTL),
		IPAddress:        in.IP,
		UserAgent:        in.UserAgent,
		IsCurrent:        true,
		LastAccessAt:     &now,
	}, nil
}

// FindActiveByRefresh scans the user's current sessions and verifies the
// plaintext against each stored hash. A matching but expired session is
// revoked with reason "expired". Any miss is ErrInvalidRefreshToken.
func (r *SessionRepository) FindActiveByRefresh(ctx context.Context, userID uint64, refreshPlain string) (*db.UserSession, error) {
	var candidates []db.UserSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_current = ? AND revoked_at IS NULL", userID, true).
		Order("id DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	for i := range candidates {
		s := &candidates[i]
		if !r.hasher.Verify(refreshPlain, s.RefreshTokenHash) {
			continue
		}
		if !s.RefreshExpiresAt.After(r.clock.Now()) {
			if _, err := r.Revoke(ctx, s, db.RevokeExpired); err != nil {
				return nil, err
			}
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return s, nil
	}
	return nil, apperrors.ErrInvalidRefreshToken
}

// Rotate revokes old with reason "rotation" and creates its successor,
// linked back through rotated_from_id, in one transaction. The revoke only applies to a still-current row, so of
// two concurrent rotations of the same session exactly one succeeds; the
// other gets ErrInvalidRefreshToken and creates nothing.
func (r *SessionRepository) Rotate(ctx context.Context, old *db.UserSession, newRefreshPlain string, ttl time.Duration) (*db.UserSession, error) {
	if old == nil || !old.Active(r.clock.Now()) {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	next, err := r.build(NewSession{
		UserID:       old.UserID,
		DeviceID:     old.DeviceID,
		RefreshPlain: newRefreshPlain,
		TTL:          ttl,
		IP:           old.IPAddress,
		UserAgent:    old.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	next.RotatedFromID = &old.ID
	now := r.clock.Now()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.UserSession{}).
			Where("id = ? AND is_current = ? AND revoked_at IS NULL", old.ID, true).
			Updates(map[string]interface{}{
				"is_current":    false,
				"revoked_at":    now,
				"revoke_reason": db.RevokeRotation,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrInvalidRefreshToken
		}
		return tx.Create(next).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidRefreshToken) {
			return nil, err
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	reason := db.RevokeRotation
	old.IsCurrent = false
	old.RevokedAt = &now
	old.RevokeReason = &reason
	return next, nil
}

// Revoke marks s revoked and reports whether this call changed the row.
// Revoking an already revoked session changes nothing and returns false.
func (r *SessionRepository) Revoke(ctx context.Context, s *db.UserSession, reason string) (bool, error) {
	now := r.clock.Now()
	res := r.db.WithContext(ctx).Model(&db.UserSession{}).
		Where("id = ? AND revoked_at IS NULL", s.ID).
		Updates(map[string]interface{}{
			"is_current":    false,
			"revoked_at":    now,
			"revoke_reason": reason,
		})
	if res.Error != nil {
		return false, fmt.Errorf("revoke session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	s.IsCurrent = false
	s.RevokedAt = &now
	s.RevokeReason = &reason
	return true, nil
}

// RevokeAllForUser revokes every current session of userID except
// exceptID, returning how many rows changed.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID uint64, exceptID *uint64, reason string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&db.UserSession{}).
		Where("user_id = ? AND is_current = ? AND revoked_at IS NULL", userID, true)
	if exceptID != nil {
		q = q.Where("id <> ?", *exceptID)
	}
	res := q.Updates(map[string]interface{}{
		"is_current":    false,
		"revoked_at":    r.clock.Now(),
		"revoke_reason": reason,
	})
	if res.Error != nil {
		return 0, fmt.Errorf("revoke sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountActive counts sessions of userID that are usable right now.
func (r *SessionRepository) CountActive(ctx context.Context, userID uint64) (int, error) {
	var rows []db.UserSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_current = ? AND revoked_at IS NULL", userID, true).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}
	now := r.clock.Now()
	n := 0
	for i := range rows {
		if rows[i].Active(now) {
			n++
		}
	}
	return n, nil
}

// Get loads a session by id.
func (r *SessionRepository) Get(ctx context.Context, id uint64) (*db.UserSession, error) {
	var s db.UserSession
	err := r.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
