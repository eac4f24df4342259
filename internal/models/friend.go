package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Friend is one row per accepted friendship, written in both directions so
// lookups stay a single indexed query.
type Friend struct {
	gorm.Model
	UserID   uuid.UUID `gorm:"type:uuid;index;not null"`
	FriendID uuid.UUID `gorm:"type:uuid;index;not null"`

	User       *User `gorm:"foreignKey:UserID"`
	FriendUser *User `gorm:"foreignKey:FriendID"`
}

// FriendRequest is the pending half of a friendship; accepting it creates the
// Friend rows and removes the request.
type FriendRequest struct {
	gorm.Model
	SenderID   uuid.UUID `gorm:"type:uuid;index;not null"`
	ReceiverID uuid.UUID `gorm:"type:uuid;index;not null"`
	SentAt     time.Time

	Sender   *User `gorm:"foreignKey:SenderID"`
	Receiver *User `gorm:"foreignKey:ReceiverID"`
}
