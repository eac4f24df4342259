package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName         string
	LastName          string
	Username          string `gorm:"uniqueIndex;size:64;not null"`
	Email             string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash      string `gorm:"not null"`
	Salt              string `gorm:"not null"`
	EmailVerified     bool   `gorm:"default:false"`
	CreatedAt         time.Time
	PasswordUpdatedAt *time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
