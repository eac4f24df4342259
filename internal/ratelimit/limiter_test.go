package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, config map[Action]Config) (*Limiter, *miniredis.Miniredis) {
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
	return New(rdb, config), mr
}

func TestRegisterAttempt_LockAfterThreshold(t *testing.T) {
	cfg := map[Action]Config{
		ActionLogin: {
			MaxIdentifierAttempts: 5,
			MaxIPAttempts:         20,
			AttemptWindow:         15 * time.Minute,
			LockDuration:          5 * time.Minute,
		},
	}
	l, _ := newTestLimiter(t, cfg)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		triggered, err := l.RegisterAttempt(ctx, ActionLogin, "alice", "10.0.0.1")
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if triggered {
			t.Fatalf("attempt %d should not trigger a lock", i+1)
		}
	}

	// The 5th failure exhausts the budget and sets the lock, so the 6th
	// attempt never gets through.
	triggered, err := l.RegisterAttempt(ctx, ActionLogin, "alice", "10.0.0.1")
	if err != nil {
		t.Fatalf("attempt 5: %v", err)
	}
	if !triggered {
		t.Fatal("attempt 5 should trigger the identifier lock")
	}

	blocked, err := l.IsBlocked(ctx, ActionLogin, "alice", "10.0.0.1")
	if err != nil {
		t.Fatalf("IsBlocked: %v", err)
	}
	if !blocked {
		t.Fatal("identifier should be blocked after the lock triggers")
	}
}

func TestLockExpiresAfterLockDuration(t *testing.T) {
	cfg := map[Action]Config{
		ActionLogin: {
			MaxIdentifierAttempts: 2,
			MaxIPAttempts:         20,
			AttemptWindow:         15 * time.Minute,
			LockDuration:          5 * time.Minute,
		},
	}
	l, mr := newTestLimiter(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.RegisterAttempt(ctx, ActionLogin, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	blocked, err := l.IsBlocked(ctx, ActionLogin, "alice", "10.0.0.1")
	if err != nil {
		t.Fatalf("IsBlocked: %v", err)
	}
	if !blocked {
		t.Fatal("expected the lock to be set")
	}

	mr.FastForward(5*time.Minute + time.Second)

	blocked, err = l.IsBlocked(ctx, ActionLogin, "alice", "10.0.0.1")
	if err != nil {
		t.Fatalf("IsBlocked after lock duration: %v", err)
	}
	if blocked {
		t.Fatal("lock key should be gone after lockDuration elapses")
	}
}

func TestIPLockIndependentOfIdentifier(t *testing.T) {
	cfg := map[Action]Config{
		ActionLogin: {
			MaxIdentifierAttempts: 100,
			MaxIPAttempts:         3,
			AttemptWindow:         15 * time.Minute,
			LockDuration:          5 * time.Minute,
		},
	}
	l, _ := newTestLimiter(t, cfg)
	ctx := context.Background()

	// Same IP cycling identifiers still exhausts the IP budget.
	ids := []string{"a", "b", "c"}
	var triggered bool
	for _, id := range ids {
		var err error
		triggered, err = l.RegisterAttempt(ctx, ActionLogin, id, "10.0.0.9")
		if err != nil {
			t.Fatalf("attempt for %s: %v", id, err)
		}
	}
	if !triggered {
		t.Fatal("3rd attempt from the same IP should trigger the IP lock")
	}

	// The IP lock blocks even identifiers that never failed.
	blocked, err := l.IsBlocked(ctx, ActionLogin, "fresh-user", "10.0.0.9")
	if err != nil {
		t.Fatalf("IsBlocked: %v", err)
	}
	if !blocked {
		t.Fatal("IP lock should block any identifier from that IP")
	}

	// A different IP is unaffected.
	blocked, err = l.IsBlocked(ctx, ActionLogin, "fresh-user", "10.0.0.10")
	if err != nil {
		t.Fatalf("IsBlocked other ip: %v", err)
	}
	if blocked {
		t.Fatal("other IPs must not be blocked")
	}
}

func TestResetClearsCounters(t *testing.T) {
	cfg := map[Action]Config{
		ActionLogin: {
			MaxIdentifierAttempts: 3,
			MaxIPAttempts:         20,
			AttemptWindow:         15 * time.Minute,
			LockDuration:          5 * time.Minute,
		},
	}
	l, _ := newTestLimiter(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := l.RegisterAttempt(ctx, ActionLogin, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := l.Reset(ctx, ActionLogin, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	// Budget starts over after a successful action: without the reset the
	// cumulative count would reach the threshold here.
	for i := 0; i < 2; i++ {
		triggered, err := l.RegisterAttempt(ctx, ActionLogin, "alice", "10.0.0.1")
		if err != nil {
			t.Fatalf("attempt %d after reset: %v", i+1, err)
		}
		if triggered {
			t.Fatalf("attempt %d after reset should not trigger a lock", i+1)
		}
	}
}

func TestCooldownIsOrthogonal(t *testing.T) {
	l, mr := newTestLimiter(t, nil)
	ctx := context.Background()

	active, err := l.IsInCooldown(ctx, ActionVerifyEmail, "alice@example.com")
	if err != nil {
		t.Fatalf("IsInCooldown: %v", err)
	}
	if active {
		t.Fatal("no cooldown should be active yet")
	}

	if err := l.StartCooldown(ctx, ActionVerifyEmail, "alice@example.com", time.Minute); err != nil {
		t.Fatalf("StartCooldown: %v", err)
	}

	active, err = l.IsInCooldown(ctx, ActionVerifyEmail, "alice@example.com")
	if err != nil {
		t.Fatalf("IsInCooldown: %v", err)
	}
	if !active {
		t.Fatal("cooldown should be active")
	}

	// Cooldown does not block the action itself.
	blocked, err := l.IsBlocked(ctx, ActionVerifyEmail, "alice@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("IsBlocked: %v", err)
	}
	if blocked {
		t.Fatal("cooldown must not set a lock")
	}

	mr.FastForward(2 * time.Minute)

	active, err = l.IsInCooldown(ctx, ActionVerifyEmail, "alice@example.com")
	if err != nil {
		t.Fatalf("IsInCooldown after expiry: %v", err)
	}
	if active {
		t.Fatal("cooldown should expire with its TTL")
	}
}

func TestUnknownActionRejected(t *testing.T) {
	l, _ := newTestLimiter(t, map[Action]Config{})

	if _, err := l.RegisterAttempt(context.Background(), Action("bogus"), "x", "1.2.3.4"); err != ErrUnknownAction {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}
