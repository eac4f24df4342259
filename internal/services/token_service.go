package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chat-backend/internal/models"
	"chat-backend/pkg/security"
)

// TokenService issues stateless access tokens and owns the persisted
// refresh-token rotation chain.
type TokenService struct {
	db         *gorm.DB
	jwt        security.JWTConfig
	refreshTTL time.Duration
}

func NewTokenService(db *gorm.DB, jwtCfg security.JWTConfig, refreshTTL time.Duration) *TokenService {
	return &TokenService{db: db, jwt: jwtCfg, refreshTTL: refreshTTL}
}

// RotationResult carries the freshly rotated pair.
type RotationResult struct {
	AccessToken     string
	AccessExpiresIn int
	RefreshToken    *models.RefreshToken
	User            *models.User
}

// IssueAccessToken signs a short-lived access token for the user. No store
// interaction; the only failure mode is configuration.
func (s *TokenService) IssueAccessToken(user *models.User) (string, int, error) {
	return security.CreateAccessToken(s.jwt, user.ID, user.Username, user.Email)
}

// CreateRefreshToken persists a fresh refresh-token row for the user.
func (s *TokenService) CreateRefreshToken(ctx context.Context, user *models.User, ip string) (*models.RefreshToken, error) {
	opaque, err := security.GenerateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	row := models.RefreshToken{
		Token:       opaque,
		UserID:      user.ID,
		ExpiresAt:   time.Now().Add(s.refreshTTL),
		CreatedByIP: ip,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &row, nil
}

// Rotate consumes the presented refresh token and returns a new pair.
//
// A row whose ReplacedByToken is already set can only be presented by someone
// holding a copied token: the legitimate client always holds the newest link
// of the chain. That case revokes every session of the owning user.
func (s *TokenService) Rotate(ctx context.Context, presented, ip string) (*RotationResult, error) {
	var row models.RefreshToken
	err := s.db.WithContext(ctx).Where("token = ?", presented).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	now := time.Now()
	switch {
	case row.RevokedAt != nil && row.ReplacedByToken == nil:
		// Revoked outside rotation (logout, mass revoke).
		return nil, ErrTokenRevoked
	case now.After(row.ExpiresAt):
		return nil, ErrTokenExpired
	case row.ReplacedByToken != nil:
		return nil, s.handleReuse(ctx, row.UserID)
	}

	newOpaque, err := security.GenerateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	// Conditional update keyed on revoked_at being null: of two concurrent
	// rotations of the same row exactly one wins. The loser observes zero
	// affected rows and is handled as reuse.
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", row.ID).
		Updates(map[string]any{
			"revoked_at":        now,
			"replaced_by_token": newOpaque,
			"revoked_by_ip":     ip,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.handleReuse(ctx, row.UserID)
	}

	newRow := models.RefreshToken{
		Token:       newOpaque,
		UserID:      row.UserID,
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedByIP: ip,
	}
	if err := s.db.WithContext(ctx).Create(&newRow).Error; err != nil {
		return nil, fmt.Errorf("save rotated refresh token: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", row.UserID).Error; err != nil {
		return nil, fmt.Errorf("load token owner: %w", err)
	}

	access, expiresIn, err := s.IssueAccessToken(&user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &RotationResult{
		AccessToken:     access,
		AccessExpiresIn: expiresIn,
		RefreshToken:    &newRow,
		User:            &user,
	}, nil
}

// Revoke marks the presented token revoked without rotating. Used by logout;
// already-revoked tokens are a no-op.
func (s *TokenService) Revoke(ctx context.Context, presented, ip string) error {
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", presented).
		Updates(map[string]any{"revoked_at": time.Now(), "revoked_by_ip": ip}).Error
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll invalidates the user's entire refresh chain.
func (s *TokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	err := s.db.WithContext(ctx).Unscoped().
		Where("user_id = ?", userID).
		Delete(&models.RefreshToken{}).Error
	if err != nil {
		return fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return nil
}

func (s *TokenService) handleReuse(ctx context.Context, userID uuid.UUID) error {
	log.Printf("SECURITY refresh token reuse detected for user %s, revoking all sessions", userID)
	if err := s.RevokeAll(ctx, userID); err != nil {
		return err
	}
	return ErrTokenReuseDetected
}
