package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chat-backend/internal/models"
)

var (
	ErrRequestNotFound = errors.New("friend request not found")
	ErrAlreadyFriends  = errors.New("users are already friends")
	ErrSelfRequest     = errors.New("cannot send a friend request to yourself")
)

// FriendService owns the friend graph: pending requests and accepted
// friendships (stored in both directions).
type FriendService struct {
	db *gorm.DB
}

func NewFriendService(db *gorm.DB) *FriendService {
	return &FriendService{db: db}
}

func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}

	var existing int64
	err := s.db.WithContext(ctx).Model(&models.Friend{}).
		Where("user_id = ? AND friend_id = ?", senderID, receiverID).
		Count(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyFriends
	}

	req := models.FriendRequest{SenderID: senderID, ReceiverID: receiverID, SentAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, fmt.Errorf("save friend request: %w", err)
	}
	return &req, nil
}

// PendingRequests lists requests addressed to the user.
func (s *FriendService) PendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	var reqs []models.FriendRequest
	err := s.db.WithContext(ctx).Preload("Sender").
		Where("receiver_id = ?", userID).
		Order("sent_at desc").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("load friend requests: %w", err)
	}
	return reqs, nil
}

// AcceptRequest turns a pending request into a friendship. Only the receiver
// may accept.
func (s *FriendService) AcceptRequest(ctx context.Context, userID uuid.UUID, requestID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.FriendRequest
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("load friend request: %w", err)
		}
		if req.ReceiverID != userID {
			return ErrUnauthorized
		}

		rows := []models.Friend{
			{UserID: req.SenderID, FriendID: req.ReceiverID},
			{UserID: req.ReceiverID, FriendID: req.SenderID},
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("save friendship: %w", err)
		}
		if err := tx.Unscoped().Delete(&req).Error; err != nil {
			return fmt.Errorf("remove friend request: %w", err)
		}
		return nil
	})
}

// DeclineRequest removes a pending request. Sender and receiver may both do it.
func (s *FriendService) DeclineRequest(ctx context.Context, userID uuid.UUID, requestID uint) error {
	var req models.FriendRequest
	if err := s.db.WithContext(ctx).First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("load friend request: %w", err)
	}
	if req.SenderID != userID && req.ReceiverID != userID {
		return ErrUnauthorized
	}
	if err := s.db.WithContext(ctx).Unscoped().Delete(&req).Error; err != nil {
		return fmt.Errorf("remove friend request: %w", err)
	}
	return nil
}

// Friends lists the user's accepted friendships.
func (s *FriendService) Friends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
	var rows []models.Friend
	err := s.db.WithContext(ctx).Preload("FriendUser").
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load friends: %w", err)
	}
	return rows, nil
}

// RemoveFriend deletes the friendship in both directions.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	err := s.db.WithContext(ctx).Unscoped().
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).
		Delete(&models.Friend{}).Error
	if err != nil {
		return fmt.Errorf("remove friendship: %w", err)
	}
	return nil
}
