package security

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const TokenTypeAccess = "access"

var ErrInvalidToken = errors.New("invalid access token")

// AccessClaims is the typed claim set carried by every access token. Claims
// are checked at the parse boundary, never looked up dynamically.
type AccessClaims struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// JWTConfig holds the signing material and issuance settings.
type JWTConfig struct {
	Secret    []byte
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

// CreateAccessToken signs a stateless access token for the user. The jti is
// unique per issuance.
func CreateAccessToken(cfg JWTConfig, userID uuid.UUID, username, email string) (token string, expiresIn int, err error) {
	if len(cfg.Secret) == 0 {
		return "", 0, errors.New("jwt secret not configured")
	}

	now := time.Now()
	claims := AccessClaims{
		Username:  username,
		Email:     email,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int(cfg.AccessTTL.Seconds()), nil
}

// ParseAccessToken validates signature, expiry and token type, and returns the
// typed claims.
func ParseAccessToken(cfg JWTConfig, tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return cfg.Secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// FromAuthHeader extracts and validates the bearer token of a request.
func FromAuthHeader(cfg JWTConfig, r *http.Request) (*AccessClaims, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, ErrInvalidToken
	}
	return ParseAccessToken(cfg, strings.TrimPrefix(auth, "Bearer "))
}

// FromQuery extracts and validates the token carried as a query parameter.
// Browser websocket handshakes cannot set arbitrary headers, so the real-time
// endpoint authenticates this way.
func FromQuery(cfg JWTConfig, r *http.Request, param string) (*AccessClaims, error) {
	tokenStr := r.URL.Query().Get(param)
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	return ParseAccessToken(cfg, tokenStr)
}

// SubjectID parses the claim subject back into a user id.
func (c *AccessClaims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
