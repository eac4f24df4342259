package handlers

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"chat-backend/internal/config"
	"chat-backend/internal/mail"
	"chat-backend/internal/models"
	"chat-backend/internal/ratelimit"
	"chat-backend/internal/services"
	"chat-backend/pkg/security"
)

const testPepper = "test-pepper"

var testJWT = security.JWTConfig{
	Secret:    []byte("handler-test-secret"),
	Issuer:    "chat-backend",
	Audience:  "chat-frontend",
	AccessTTL: 15 * time.Minute,
}

type testEnv struct {
	db     *gorm.DB
	auth   *services.AuthService
	tokens *services.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := config.ConnectDB(dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := ratelimit.New(client, nil)
	tokens := services.NewTokenService(db, testJWT, 30*24*time.Hour)
	auth := services.NewAuthService(db, limiter, tokens, mail.LogMailer{}, testPepper)

	return &testEnv{db: db, auth: auth, tokens: tokens}
}

func (e *testEnv) createUser(t *testing.T, username, password string) *models.User {
	t.Helper()

	hash, salt, err := security.HashPassword(password, testPepper)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		FirstName:     "Test",
		LastName:      "User",
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  hash,
		Salt:          salt,
		EmailVerified: true,
	}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func (e *testEnv) accessToken(t *testing.T, user *models.User) string {
	t.Helper()
	tok, _, err := security.CreateAccessToken(testJWT, user.ID, user.Username, user.Email)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	return tok
}

func refreshCookieValue(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c.Value
		}
	}
	t.Fatal("no refresh cookie set")
	return ""
}
