package db

import (
	"time"
)

// Reaction results stored in animal_likes.result.
const (
	ResultLike    = "like"
	ResultDislike = "dislike"
)

// Session revoke reasons.
const (
	RevokeRotation   = "rotation"
	RevokeLogout     = "logout"
	RevokeExpired    = "expired"
	RevokeBulkRevoke = "bulk_revoke"
)

const (
	AnimalStatusActive = "active"

	PurposeRegister = "register"
)

// User is the identity anchor. Phone and Email are optional but unique
// when present. Active is written explicitly on create; a gorm default
// would swallow an explicit false.
type User struct {
	ID              uint64  `gorm:"primaryKey;autoIncrement"`
	Phone           *string `gorm:"uniqueIndex;size:32"`
	Email           *string `gorm:"uniqueIndex;size:255"`
	IsPhoneVerified bool    `gorm:"not null"`
	IsEmailVerified bool    `gorm:"not null"`
	PasswordHash    string  `gorm:"size:255"`
	IsActive        bool    `gorm:"not null"`
	LastLoginAt     *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// UserDevice is a client installation, upserted on every login.
//
// Unique: (user_id, device_id)
type UserDevice struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement"`
	UserID        uint64  `gorm:"not null;uniqueIndex:uq_user_devices_user_device,priority:1"`
	User          *User   `gorm:"constraint:OnDelete:CASCADE"`
	DeviceID      string  `gorm:"size:36;not null;uniqueIndex:uq_user_devices_user_device,priority:2"`
	Platform      string  `gorm:"size:16;not null"`
	DeviceModel   *string `gorm:"size:128"`
	OSVersion     *string `gorm:"size:64"`
	AppVersion    *string `gorm:"size:32"`
	PushToken     *string `gorm:"size:512"`
	IsPushEnabled bool    `gorm:"not null"`
	LastIP        *string `gorm:"size:64"`
	LastSeenAt    *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// UserSession is one refresh-token lineage step. Only the bcrypt hash of
// the refresh token is stored. A row is active iff IsCurrent, RevokedAt is
// nil and RefreshExpiresAt is in the future. Rows are never deleted by the
// ledger; rotation revokes and inserts.
type UserSession struct {
	ID               uint64      `gorm:"primaryKey;autoIncrement"`
	UserID           uint64      `gorm:"not null;index:idx_user_sessions_user_current,priority:1"`
	User             *User       `gorm:"constraint:OnDelete:CASCADE"`
	DeviceID         *uint64     `gorm:"index"`
	Device           *UserDevice `gorm:"foreignKey:DeviceID;constraint:OnDelete:SET NULL"`
	RefreshTokenHash string      `gorm:"size:255;not null"`
	RefreshExpiresAt time.Time   `gorm:"not null"`
	IPAddress        *string     `gorm:"size:64"`
	UserAgent        *string     `gorm:"size:512"`
	IsCurrent        bool        `gorm:"not null;index:idx_user_sessions_user_current,priority:2"`
	RevokedAt        *time.Time
	RevokeReason     *string `gorm:"size:255"`
	RotatedFromID    *uint64 `gorm:"index"` // predecessor in a rotation chain
	LastAccessAt     *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// Active reports whether the session can still be used at now.
func (s *UserSession) Active(now time.Time) bool {
	return s.IsCurrent && s.RevokedAt == nil && s.RefreshExpiresAt.After(now)
}

// Animal is the listing a reaction targets. Only the fields needed to
// resolve ownership and visibility live here.
type Animal struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	OwnerUserID uint64    `gorm:"not null;index"`
	Owner       *User     `gorm:"foreignKey:OwnerUserID;constraint:OnDelete:CASCADE"`
	Name        *string   `gorm:"size:100"`
	Species     string    `gorm:"size:32;not null"`
	City        *string   `gorm:"size:128"`
	Status      string    `gorm:"size:32;not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// AnimalLike is a user's current reaction to a listing.
//
// Unique: (from_user_id, animal_id); a repeat reaction overwrites result.
//
// Indexes:
//   - idx_animal_likes_from_result(from_user_id, result, animal_id)
//     reciprocity check and outgoing list.
type AnimalLike struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	FromUserID uint64    `gorm:"not null;uniqueIndex:uq_animal_likes_from_animal,priority:1;index:idx_animal_likes_from_result,priority:1"`
	FromUser   *User     `gorm:"foreignKey:FromUserID;constraint:OnDelete:CASCADE"`
	AnimalID   uint64    `gorm:"not null;uniqueIndex:uq_animal_likes_from_animal,priority:2;index:idx_animal_likes_from_result,priority:3;index"`
	Animal     *Animal   `gorm:"constraint:OnDelete:CASCADE"`
	Result     string    `gorm:"size:16;not null;index:idx_animal_likes_from_result,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// UserMatch is a confirmed mutual like. The pair is stored ordered
// (user_id1 < user_id2) and unique, which is what deduplicates
// concurrent creation from both sides.
type UserMatch struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID1   uint64    `gorm:"column:user_id1;not null;uniqueIndex:uq_user_matches_pair,priority:1;check:chk_user_matches_order,user_id1 < user_id2"`
	User1     *User     `gorm:"foreignKey:UserID1;constraint:OnDelete:CASCADE"`
	UserID2   uint64    `gorm:"column:user_id2;not null;uniqueIndex:uq_user_matches_pair,priority:2;index"`
	User2     *User     `gorm:"foreignKey:UserID2;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Other returns the counterpart of userID in the match.
func (m *UserMatch) Other(userID uint64) uint64 {
	if m.UserID1 == userID {
		return m.UserID2
	}
	return m.UserID1
}

// EmailVerificationCode stores a hashed one-time code for a purpose.
type EmailVerificationCode struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	UserID       uint64    `gorm:"not null;index:idx_email_codes_user_purpose,priority:1"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE"`
	Email        string    `gorm:"size:255;not null"`
	Purpose      string    `gorm:"size:32;not null;index:idx_email_codes_user_purpose,priority:2"`
	CodeHash     string    `gorm:"size:255;not null"`
	ExpiresAt    time.Time `gorm:"not null"`
	AttemptCount int       `gorm:"not null"`
	MaxAttempts  int       `gorm:"not null"`
	ConsumedAt   *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&UserDevice{},
		&UserSession{},
		&Animal{},
		&AnimalLike{},
		&UserMatch{},
		&EmailVerificationCode{},
	}
}
