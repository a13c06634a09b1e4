package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/pature/internal/db"
)

// DeviceInfo is what a client reports about itself at login.
type DeviceInfo struct {
	DeviceID    string
	Platform    string
	DeviceModel *string
	OSVersion   *string
	AppVersion  *string
	PushToken   *string
	IP          *string
}

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(database *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: database}
}

// Upsert inserts or refreshes the device keyed by (user_id, device_id) and
// returns the stored row.
func (r *DeviceRepository) Upsert(ctx context.Context, userID uint64, info DeviceInfo, now time.Time) (*db.UserDevice, error) {
	device := db.UserDevice{
		UserID:        userID,
		DeviceID:      info.DeviceID,
		Platform:      info.Platform,
		DeviceModel:   info.DeviceModel,
		OSVersion:     info.OSVersion,
		AppVersion:    info.AppVersion,
		PushToken:     info.PushToken,
		IsPushEnabled: true,
		LastIP:        info.IP,
		LastSeenAt:    &now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "device_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"platform", "device_model", "os_version", "app_version",
				"push_token", "last_ip", "last_seen_at", "updated_at",
			}),
		}).
		Create(&device).Error
	if err != nil {
		return nil, fmt.Errorf("upsert device: %w", err)
	}

	var stored db.UserDevice
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, info.DeviceID).
		First(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("reload device: %w", err)
	}
	return &stored, nil
}
