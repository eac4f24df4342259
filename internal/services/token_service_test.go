package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chat-backend/internal/models"
	"chat-backend/pkg/security"
)

func TestRotateIssuesNewPairAndConsumesOldRow(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTokenService(t, db)
	user := createTestUser(t, db, "alice", "alice@example.com", "password-1", true)
	ctx := context.Background()

	t1, err := svc.CreateRefreshToken(ctx, user, "10.0.0.1")
	if err != nil {
		t.Fatalf("create refresh token: %v", err)
	}

	res, err := svc.Rotate(ctx, t1.Token, "10.0.0.1")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if res.RefreshToken.Token == t1.Token {
		t.Fatal("rotation must mint a different opaque token")
	}
	if res.User.ID != user.ID {
		t.Fatalf("rotated pair belongs to %s, want %s", res.User.ID, user.ID)
	}

	claims, err := security.ParseAccessToken(testJWTConfig(), res.AccessToken)
	if err != nil {
		t.Fatalf("parse issued access token: %v", err)
	}
	if claims.Username != "alice" || claims.TokenType != security.TokenTypeAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	var old models.RefreshToken
	if err := db.First(&old, t1.ID).Error; err != nil {
		t.Fatalf("reload old row: %v", err)
	}
	if old.RevokedAt == nil {
		t.Fatal("old row must be revoked at rotation")
	}
	if old.ReplacedByToken == nil || *old.ReplacedByToken != res.RefreshToken.Token {
		t.Fatal("old row must point at its replacement")
	}
}

func TestRotateUnknownToken(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTokenService(t, db)

	if _, err := svc.Rotate(context.Background(), "no-such-token", ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestRotateExpiredTokenNeverSucceeds(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTokenService(t, db)
	user := createTestUser(t, db, "alice", "alice@example.com", "password-1", true)

	row := models.RefreshToken{
		Token:     "expired-token",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed expired row: %v", err)
	}

	if _, err := svc.Rotate(context.Background(), row.Token, ""); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	var reloaded models.RefreshToken
	if err := db.First(&reloaded, row.ID).Error; err != nil {
		t.Fatalf("reload row: %v", err)
	}
	if reloaded.ReplacedByToken != nil {
		t.Fatal("expired token must never rotate")
	}
}

func TestRotateRevokedToken(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTokenService(t, db)
	user := createTestUser(t, db, "alice", "alice@example.com", "password-1", true)
	ctx := context.Background()

	t1, err := svc.CreateRefreshToken(ctx, user, "")
	if err != nil {
		t.Fatalf("create refresh token: %v", err)
	}
	if err := svc.Revoke(ctx, t1.Token, ""); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := svc.Rotate(ctx, t1.Token, ""); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestReuseRevokesWholeChain(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTokenService(t, db)
	user := createTestUser(t, db, "alice", "alice@example.com", "password-1", true)
	ctx := context.Background()

	t1, err := svc.CreateRefreshToken(ctx, user, "")
	if err != nil {
		t.Fatalf("create refresh token: %v", err)
	}
	res, err := svc.Rotate(ctx, t1.Token, "")
	if err != nil {
		t.Fatalf("first rotation: %v", err)
	}
	t2 := res.RefreshToken.Token

	// Presenting the already-rotated T1 is theft evidence.
	if _, err := svc.Rotate(ctx, t1.Token, ""); !errors.Is(err, ErrTokenReuseDetected) {
		t.Fatalf("expected ErrTokenReuseDetected, got %v", err)
	}

	var remaining int64
	if err := db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&remaining).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("reuse must leave zero rows for the user, got %d", remaining)
	}

	// The legitimate T2 died with the chain.
	if _, err := svc.Rotate(ctx, t2, ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for the revoked chain, got %v", err)
	}
}

func TestConcurrentRotationSingleWinner(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTokenService(t, db)
	user := createTestUser(t, db, "alice", "alice@example.com", "password-1", true)
	ctx := context.Background()

	t1, err := svc.CreateRefreshToken(ctx, user, "")
	if err != nil {
		t.Fatalf("create refresh token: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Rotate(ctx, t1.Token, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrTokenReuseDetected), errors.Is(err, ErrTokenNotFound):
			// Losers observe reuse semantics (or the chain already deleted).
		default:
			t.Fatalf("unexpected rotation error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one successful rotation, got %d", success)
	}
}

func TestRevokeAllClearsEverySession(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTokenService(t, db)
	user := createTestUser(t, db, "alice", "alice@example.com", "password-1", true)
	other := createTestUser(t, db, "bob", "bob@example.com", "password-2", true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateRefreshToken(ctx, user, ""); err != nil {
			t.Fatalf("create refresh token: %v", err)
		}
	}
	keep, err := svc.CreateRefreshToken(ctx, other, "")
	if err != nil {
		t.Fatalf("create refresh token: %v", err)
	}

	if err := svc.RevokeAll(ctx, user.ID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	var remaining int64
	if err := db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&remaining).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected zero rows after mass revoke, got %d", remaining)
	}

	// Other users' chains are untouched.
	if _, err := svc.Rotate(ctx, keep.Token, ""); err != nil {
		t.Fatalf("unrelated user's token must still rotate: %v", err)
	}
}
