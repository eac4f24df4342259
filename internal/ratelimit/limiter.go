package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Action names an identity-sensitive operation with its own attempt budget.
type Action string

const (
	ActionLogin         Action = "login"
	ActionRegister      Action = "register"
	ActionVerifyEmail   Action = "verify_email"
	ActionResetPassword Action = "reset_password"
)

var (
	ErrUnknownAction    = errors.New("rate limit action not configured")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config tunes one action's limits. Identifier and IP budgets are tracked
// separately: one hostile IP cannot exhaust a victim's identifier budget, and
// a distributed attack on one identifier is still caught by the identifier
// counter.
type Config struct {
	MaxIdentifierAttempts int
	MaxIPAttempts         int
	AttemptWindow         time.Duration
	LockDuration          time.Duration
}

// DefaultConfig is the static per-action table.
func DefaultConfig() map[Action]Config {
	return map[Action]Config{
		ActionLogin: {
			MaxIdentifierAttempts: 5,
			MaxIPAttempts:         20,
			AttemptWindow:         15 * time.Minute,
			LockDuration:          5 * time.Minute,
		},
		ActionRegister: {
			MaxIdentifierAttempts: 3,
			MaxIPAttempts:         10,
			AttemptWindow:         30 * time.Minute,
			LockDuration:          10 * time.Minute,
		},
		ActionVerifyEmail: {
			MaxIdentifierAttempts: 5,
			MaxIPAttempts:         15,
			AttemptWindow:         time.Hour,
			LockDuration:          15 * time.Minute,
		},
		ActionResetPassword: {
			MaxIdentifierAttempts: 3,
			MaxIPAttempts:         10,
			AttemptWindow:         30 * time.Minute,
			LockDuration:          15 * time.Minute,
		},
	}
}

// Limiter gates identity-sensitive actions with Redis counters and lock keys.
type Limiter struct {
	redis  redis.UniversalClient
	config map[Action]Config
}

func New(client redis.UniversalClient, config map[Action]Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Limiter{redis: client, config: config}
}

// IsBlocked reports whether either lock key for the action currently exists.
// A lock blocks the action outright, regardless of counter state.
func (l *Limiter) IsBlocked(ctx context.Context, action Action, identifier, ip string) (bool, error) {
	n, err := l.redis.Exists(ctx, lockKey(action, identifier), ipLockKey(action, ip)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// RegisterAttempt counts a failed attempt against both the identifier and the
// source IP. When either counter reaches its budget the corresponding lock key
// is set for the configured duration and true is returned, so the attempt
// after the last allowed failure is already blocked.
func (l *Limiter) RegisterAttempt(ctx context.Context, action Action, identifier, ip string) (bool, error) {
	cfg, ok := l.config[action]
	if !ok {
		return false, ErrUnknownAction
	}

	ipAttempts, err := l.incrementWithTTL(ctx, ipAttemptKey(action, ip), cfg.AttemptWindow)
	if err != nil {
		return false, err
	}
	idAttempts, err := l.incrementWithTTL(ctx, attemptKey(action, identifier), cfg.AttemptWindow)
	if err != nil {
		return false, err
	}

	triggered := false
	if ipAttempts >= int64(cfg.MaxIPAttempts) {
		if err := l.redis.Set(ctx, ipLockKey(action, ip), "1", cfg.LockDuration).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		triggered = true
	}
	if idAttempts >= int64(cfg.MaxIdentifierAttempts) {
		if err := l.redis.Set(ctx, lockKey(action, identifier), "1", cfg.LockDuration).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		triggered = true
	}
	return triggered, nil
}

// Reset clears both attempt counters. Called after a successful action so
// prior failures stop counting against legitimate use.
func (l *Limiter) Reset(ctx context.Context, action Action, identifier, ip string) error {
	err := l.redis.Del(ctx, attemptKey(action, identifier), ipAttemptKey(action, ip)).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsInCooldown reports whether a side-effect cooldown is active for the
// identifier. Cooldowns are orthogonal to attempt counting.
func (l *Limiter) IsInCooldown(ctx context.Context, action Action, identifier string) (bool, error) {
	n, err := l.redis.Exists(ctx, cooldownKey(action, identifier)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// StartCooldown throttles a side-effecting follow-up (e.g. resending a
// verification email) for the given duration.
func (l *Limiter) StartCooldown(ctx context.Context, action Action, identifier string, duration time.Duration) error {
	if err := l.redis.Set(ctx, cooldownKey(action, identifier), "1", duration).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: the TTL is set only for the first hit in the
	// window. A race here just stretches the window slightly.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func attemptKey(action Action, identifier string) string {
	return fmt.Sprintf("rl:attempt:%s:%s", action, identifier)
}

func ipAttemptKey(action Action, ip string) string {
	return fmt.Sprintf("rl:attempt:%s:ip:%s", action, ip)
}

func lockKey(action Action, identifier string) string {
	return fmt.Sprintf("rl:lock:%s:%s", action, identifier)
}

func ipLockKey(action Action, ip string) string {
	return fmt.Sprintf("rl:lock:%s:ip:%s", action, ip)
}

func cooldownKey(action Action, identifier string) string {
	return fmt.Sprintf("rl:cooldown:%s:%s", action, identifier)
}
