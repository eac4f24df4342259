package services

import "errors"

// Failure taxonomy shared by the gateway, token service and handlers. The
// wire-visible messages stay generic; these sentinels keep the internal
// distinction for logs and tests.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")

	ErrTokenNotFound      = errors.New("refresh token not found")
	ErrTokenExpired       = errors.New("refresh token expired")
	ErrTokenRevoked       = errors.New("refresh token revoked")
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")

	ErrRateLimitBlocked = errors.New("too many attempts")
	ErrCooldownActive   = errors.New("cooldown active")

	ErrUnauthorized       = errors.New("operation not allowed")
	ErrUserExists         = errors.New("username or email already in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrVerifyTokenInvalid = errors.New("verification token invalid or expired")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
)
