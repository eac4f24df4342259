package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"chat-backend/internal/config"
	"chat-backend/internal/models"
	"chat-backend/internal/ratelimit"
	"chat-backend/pkg/security"
)

const testPepper = "test-pepper"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := config.ConnectDB(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	// One connection keeps sqlite from returning busy errors under the
	// concurrency tests.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func newTestLimiter(t *testing.T) (*ratelimit.Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return ratelimit.New(rdb, nil), mr
}

func testJWTConfig() security.JWTConfig {
	return security.JWTConfig{
		Secret:    []byte("test-secret"),
		Issuer:    "chat-backend-test",
		Audience:  "chat-frontend-test",
		AccessTTL: 15 * time.Minute,
	}
}

func newTestTokenService(t *testing.T, db *gorm.DB) *TokenService {
	t.Helper()
	return NewTokenService(db, testJWTConfig(), 30*24*time.Hour)
}

func createTestUser(t *testing.T, db *gorm.DB, username, email, password string, verified bool) *models.User {
	t.Helper()

	hash, salt, err := security.HashPassword(password, testPepper)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		FirstName:     "Test",
		LastName:      "User",
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		Salt:          salt,
		EmailVerified: verified,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

type sentMail struct {
	To    string
	Token uuid.UUID
	Kind  string
}

// recordingMailer captures sends instead of delivering anything.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, to, _ string, token uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Token: token, Kind: "verify"})
	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, to, _ string, token uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Token: token, Kind: "reset"})
	return nil
}

func (m *recordingMailer) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}
