package models

import (
	"context"
	"errors"
	"time"

	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/gmLucario/pet-info-sub000/utils"
	"gorm.io/gorm"
)

type UserAppRole string

const (
	UserAppRoleUser  UserAppRole = "user"
	UserAppRoleAdmin UserAppRole = "admin"
)

// UserApp is an application account. PhoneReminder is the WhatsApp phone the
// owner verified via OTP; reminders can only target a verified phone.
type UserApp struct {
	ID            int64       `gorm:"primary_key" json:"id"`
	Email         string      `gorm:"size:255;uniqueIndex;not null" json:"email" binding:"required,email"`
	PhoneReminder *string     `gorm:"size:20;index" json:"phone_reminder"`
	AccountRole   UserAppRole `gorm:"size:20;not null;default:'user'" json:"account_role"`
	IsSubscribed  *bool       `gorm:"not null;default:false" json:"is_subscribed"`
	IsEnabled     *bool       `gorm:"not null;default:true" json:"is_enabled"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetUserAppByPhone resolves the account owning a verified reminder phone.
// Returns utils.ErrorRecordNotFound when no enabled account has linked it.
func GetUserAppByPhone(ctx context.Context, phone string) (*UserApp, error) {
	db := config.GetDB()
	var user UserApp
	err := db.WithContext(ctx).
		Where("phone_reminder = ? AND is_enabled = 1", phone).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetVerifiedPhone links a phone that just passed OTP verification.
func SetVerifiedPhone(ctx context.Context, userAppId int64, phone string) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Model(&UserApp{}).
		Where("id = ?", userAppId).
		Update("phone_reminder", phone).Error
}

// ClearVerifiedPhone unlinks the reminder phone from an account.
func ClearVerifiedPhone(ctx context.Context, userAppId int64) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Model(&UserApp{}).
		Where("id = ?", userAppId).
		Update("phone_reminder", nil).Error
}
