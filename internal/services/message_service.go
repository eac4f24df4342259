package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chat-backend/internal/models"
)

// MessageService is the registry's message-store collaborator and the history
// endpoint behind it.
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// SaveMessage persists an inbound message. Implements chat.MessageStore.
func (s *MessageService) SaveMessage(ctx context.Context, msg *models.Message) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// History returns every message the user sent or received, oldest first.
// Offline receivers catch up through this on their next connect.
func (s *MessageService) History(ctx context.Context, userID uuid.UUID) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").Preload("Receiver").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("sent_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

// Conversation returns the two-sided exchange between the user and a peer.
func (s *MessageService) Conversation(ctx context.Context, userID, peerID uuid.UUID) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, peerID, peerID, userID).
		Order("sent_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return msgs, nil
}

// MarkRead flags every message the peer sent to the user as read.
func (s *MessageService) MarkRead(ctx context.Context, userID, peerID uuid.UUID) error {
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", peerID, userID, false).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
