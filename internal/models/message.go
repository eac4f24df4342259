package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	gorm.Model
	Content    string    `gorm:"not null"`
	SenderID   uuid.UUID `gorm:"type:uuid;index;not null"`
	ReceiverID uuid.UUID `gorm:"type:uuid;index;not null"`
	SentAt     time.Time
	IsRead     bool `gorm:"default:false"`

	Sender   *User `gorm:"foreignKey:SenderID"`
	Receiver *User `gorm:"foreignKey:ReceiverID"`
}
