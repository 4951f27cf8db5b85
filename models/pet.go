package models

import (
	"context"
	"errors"
	"time"

	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/gmLucario/pet-info-sub000/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pet is the resource interactive webhook actions operate on. ExternalID is
// the public identifier carried in action tokens and share links; the
// numeric primary key never leaves the service.
type Pet struct {
	ID         int64     `gorm:"primary_key" json:"id"`
	ExternalID uuid.UUID `gorm:"type:char(36);uniqueIndex;not null" json:"external_id"`
	UserAppId  int64     `gorm:"index;not null" json:"user_app_id"`
	PetName    string    `gorm:"size:100;not null" json:"pet_name" binding:"required"`
	Breed      string    `gorm:"size:100" json:"breed"`
	About      string    `gorm:"type:text" json:"about"`
	IsFemale   *bool     `gorm:"not null;default:false" json:"is_female"`
	IsLost     *bool     `gorm:"not null;default:false" json:"is_lost"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetUserPets lists an owner's pets, oldest first.
func GetUserPets(ctx context.Context, userAppId int64) ([]Pet, error) {
	db := config.GetDB()
	var pets []Pet
	err := db.WithContext(ctx).
		Where("user_app_id = ?", userAppId).
		Order("id ASC").
		Find(&pets).Error
	return pets, err
}

func GetPetByExternalID(ctx context.Context, externalID uuid.UUID) (*Pet, error) {
	db := config.GetDB()

	var pet Pet
	err := db.WithContext(ctx).Where("external_id = ?", externalID.String()).First(&pet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &pet, nil
}

// PetExists reports whether a public pet id belongs to the given owner.
func PetExists(ctx context.Context, externalID uuid.UUID, userAppId int64) (bool, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).
		Model(&Pet{}).
		Where("external_id = ? AND user_app_id = ?", externalID, userAppId).
		Count(&count).Error
	return count > 0, err
}
