package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken is one link in a user's rotation chain. ReplacedByToken is set
// exactly once, together with RevokedAt, when the row is consumed; a row that
// already carries ReplacedByToken and is presented again is evidence of theft.
type RefreshToken struct {
	gorm.Model
	Token           string    `gorm:"uniqueIndex;not null"`
	UserID          uuid.UUID `gorm:"type:uuid;index;not null"`
	ExpiresAt       time.Time `gorm:"index"`
	RevokedAt       *time.Time
	ReplacedByToken *string
	CreatedByIP     string
	RevokedByIP     string

	User *User `gorm:"foreignKey:UserID"`
}

// Active reports whether the row can still be rotated.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ReplacedByToken == nil && now.Before(t.ExpiresAt)
}
