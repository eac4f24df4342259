package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chat-backend/internal/mail"
	"chat-backend/internal/models"
	"chat-backend/internal/ratelimit"
	"chat-backend/pkg/security"
)

const (
	verificationTokenTTL = 30 * time.Minute
	resetTokenTTL        = 30 * time.Minute
	mailCooldown         = 2 * time.Minute
)

// AuthService orchestrates the identity-sensitive flows. It holds no state of
// its own; everything lives in the limiter, the token chain and the database.
type AuthService struct {
	db      *gorm.DB
	limiter *ratelimit.Limiter
	tokens  *TokenService
	mailer  mail.Mailer
	pepper  string
}

func NewAuthService(db *gorm.DB, limiter *ratelimit.Limiter, tokens *TokenService, mailer mail.Mailer, pepper string) *AuthService {
	return &AuthService{db: db, limiter: limiter, tokens: tokens, mailer: mailer, pepper: pepper}
}

// LoginResult is the issued pair plus the authenticated user.
type LoginResult struct {
	AccessToken     string
	AccessExpiresIn int
	RefreshToken    *models.RefreshToken
	User            *models.User
}

// Login gates on the rate limiter before the credential store is ever
// consulted. Unknown user and wrong password are indistinguishable to the
// caller.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	blocked, err := s.limiter.IsBlocked(ctx, ratelimit.ActionLogin, username, ip)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrRateLimitBlocked
	}

	var user models.User
	err = s.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.failLogin(ctx, username, ip)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !security.VerifyPassword(password, s.pepper, user.PasswordHash, user.Salt) {
		return nil, s.failLogin(ctx, username, ip)
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := s.limiter.Reset(ctx, ratelimit.ActionLogin, username, ip); err != nil {
		return nil, err
	}

	access, expiresIn, err := s.tokens.IssueAccessToken(&user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.CreateRefreshToken(ctx, &user, ip)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:     access,
		AccessExpiresIn: expiresIn,
		RefreshToken:    refresh,
		User:            &user,
	}, nil
}

func (s *AuthService) failLogin(ctx context.Context, username, ip string) error {
	if triggered, err := s.limiter.RegisterAttempt(ctx, ratelimit.ActionLogin, username, ip); err != nil {
		return err
	} else if triggered {
		log.Printf("rate limit lock triggered for login identifier %q", username)
	}
	return ErrInvalidCredentials
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	FirstName       string
	LastName        string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register creates the account unverified and mails a verification link. The
// mail send is additionally gated by a cooldown so registration cannot be used
// for mail-bombing.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, ip string) (*models.User, error) {
	identifier := strings.ToLower(in.Email)

	blocked, err := s.limiter.IsBlocked(ctx, ratelimit.ActionRegister, identifier, ip)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrRateLimitBlocked
	}

	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("lower(username) = ? OR lower(email) = ?", strings.ToLower(in.Username), identifier).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if count > 0 {
		if _, err := s.limiter.RegisterAttempt(ctx, ratelimit.ActionRegister, identifier, ip); err != nil {
			return nil, err
		}
		return nil, ErrUserExists
	}

	hash, salt, err := security.HashPassword(in.Password, s.pepper)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Salt:         salt,
	}
	verifyToken := uuid.New()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		row := models.EmailVerificationToken{
			Token:     verifyToken,
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(verificationTokenTTL),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("save verification token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Reset(ctx, ratelimit.ActionRegister, identifier, ip); err != nil {
		return nil, err
	}
	s.sendWithCooldown(ctx, ratelimit.ActionVerifyEmail, identifier, func() error {
		return s.mailer.SendVerificationEmail(ctx, user.Email, user.Username, verifyToken)
	})

	return &user, nil
}

// VerifyEmail consumes a verification token and flips the account to verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token uuid.UUID, ip string) error {
	identifier := token.String()

	blocked, err := s.limiter.IsBlocked(ctx, ratelimit.ActionVerifyEmail, identifier, ip)
	if err != nil {
		return err
	}
	if blocked {
		return ErrRateLimitBlocked
	}

	var row models.EmailVerificationToken
	err = s.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.failVerify(ctx, identifier, ip)
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}
	if time.Now().After(row.ExpiresAt) {
		return s.failVerify(ctx, identifier, ip)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", row.UserID).
			Update("email_verified", true).Error; err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
		if err := tx.Unscoped().Delete(&row).Error; err != nil {
			return fmt.Errorf("consume verification token: %w", err)
		}
		return nil
	})
}

func (s *AuthService) failVerify(ctx context.Context, identifier, ip string) error {
	if _, err := s.limiter.RegisterAttempt(ctx, ratelimit.ActionVerifyEmail, identifier, ip); err != nil {
		return err
	}
	return ErrVerifyTokenInvalid
}

// RecoverPassword starts the reset flow. It deliberately behaves identically
// for unknown and known emails; the handler answers with the same message
// either way.
func (s *AuthService) RecoverPassword(ctx context.Context, email, ip string) error {
	identifier := strings.ToLower(email)

	blocked, err := s.limiter.IsBlocked(ctx, ratelimit.ActionResetPassword, identifier, ip)
	if err != nil {
		return err
	}
	if blocked {
		return ErrRateLimitBlocked
	}
	// Every recovery request spends attempt budget: the flow has no failure
	// the caller can observe, so the counter is the only brake.
	if _, err := s.limiter.RegisterAttempt(ctx, ratelimit.ActionResetPassword, identifier, ip); err != nil {
		return err
	}

	var user models.User
	err = s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	resetToken := uuid.New()
	row := models.PasswordResetToken{
		Token:     resetToken,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}

	s.sendWithCooldown(ctx, ratelimit.ActionResetPassword, identifier, func() error {
		return s.mailer.SendPasswordResetEmail(ctx, user.Email, user.Username, resetToken)
	})
	return nil
}

// ValidateResetToken reports whether a reset token is still usable, for the
// redirect check before showing the reset form.
func (s *AuthService) ValidateResetToken(ctx context.Context, token uuid.UUID) (bool, error) {
	var row models.PasswordResetToken
	err := s.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup reset token: %w", err)
	}
	return time.Now().Before(row.ExpiresAt), nil
}

// ResetPassword consumes the reset token, rehashes the password with a fresh
// salt and revokes the user's whole refresh chain.
func (s *AuthService) ResetPassword(ctx context.Context, token uuid.UUID, password, confirm, ip string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	identifier := token.String()

	var row models.PasswordResetToken
	err := s.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.failReset(ctx, identifier, ip)
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}
	if time.Now().After(row.ExpiresAt) {
		return s.failReset(ctx, identifier, ip)
	}

	hash, salt, err := security.HashPassword(password, s.pepper)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", row.UserID).Updates(map[string]any{
			"password_hash":       hash,
			"salt":                salt,
			"password_updated_at": now,
		})
		if res.Error != nil {
			return fmt.Errorf("update password: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		if err := tx.Unscoped().Delete(&row).Error; err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// A reset usually follows a suspected compromise: drop every session.
	return s.tokens.RevokeAll(ctx, row.UserID)
}

func (s *AuthService) failReset(ctx context.Context, identifier, ip string) error {
	if _, err := s.limiter.RegisterAttempt(ctx, ratelimit.ActionResetPassword, identifier, ip); err != nil {
		return err
	}
	return ErrResetTokenInvalid
}

// Logout revokes the presented refresh token; with none presented it revokes
// the user's whole chain.
func (s *AuthService) Logout(ctx context.Context, presentedRefresh string, userID uuid.UUID, ip string) error {
	if presentedRefresh != "" {
		return s.tokens.Revoke(ctx, presentedRefresh, ip)
	}
	if userID != uuid.Nil {
		return s.tokens.RevokeAll(ctx, userID)
	}
	return nil
}

// sendWithCooldown skips the send while the cooldown key is alive. Mail
// failures are logged, never surfaced: the caller's request already succeeded.
func (s *AuthService) sendWithCooldown(ctx context.Context, action ratelimit.Action, identifier string, send func() error) {
	inCooldown, err := s.limiter.IsInCooldown(ctx, action, identifier)
	if err != nil {
		log.Printf("cooldown check failed for %s: %v", identifier, err)
		return
	}
	if inCooldown {
		log.Printf("mail to %s suppressed by cooldown", identifier)
		return
	}
	if err := send(); err != nil {
		log.Printf("mail send failed for %s: %v", identifier, err)
		return
	}
	if err := s.limiter.StartCooldown(ctx, action, identifier, mailCooldown); err != nil {
		log.Printf("start cooldown failed for %s: %v", identifier, err)
	}
}
