package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"chat-backend/internal/response"
	"chat-backend/internal/services"
)

// AuthHandler exposes the gateway's flows over HTTP. All decision logic lives
// in the services; handlers only decode, map errors and shape responses.
type AuthHandler struct {
	auth   *services.AuthService
	tokens *services.TokenService
}

func NewAuthHandler(auth *services.AuthService, tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FirstName       string `json:"firstName"`
		LastName        string `json:"lastName"`
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		response.WriteErr(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := h.auth.Register(r.Context(), services.RegisterInput{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Username:        in.Username,
		Email:           in.Email,
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	}, clientIP(r))
	if err != nil {
		writeAuthErr(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, toUserDTO(user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		response.WriteErr(w, http.StatusBadRequest, "username and password are required")
		return
	}

	res, err := h.auth.Login(r.Context(), in.Username, in.Password, clientIP(r))
	if err != nil {
		writeAuthErr(w, err)
		return
	}

	setRefreshCookie(w, res.RefreshToken.Token, res.RefreshToken.ExpiresAt)
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"accessToken":     res.AccessToken,
		"accessExpiresIn": res.AccessExpiresIn,
		"user":            toUserDTO(res.User),
	})
}

// writeAuthErr maps the failure taxonomy onto constant-shape responses.
// Credential failures stay deliberately uninformative.
func writeAuthErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrRateLimitBlocked), errors.Is(err, services.ErrCooldownActive):
		response.WriteErr(w, http.StatusTooManyRequests, "too many attempts, try again later")
	case errors.Is(err, services.ErrInvalidCredentials):
		response.WriteErr(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrEmailNotVerified):
		response.WriteErr(w, http.StatusForbidden, "email not verified")
	case errors.Is(err, services.ErrUserExists):
		response.WriteErr(w, http.StatusConflict, "username or email already in use")
	case errors.Is(err, services.ErrPasswordMismatch):
		response.WriteErr(w, http.StatusBadRequest, "passwords do not match")
	case errors.Is(err, services.ErrVerifyTokenInvalid), errors.Is(err, services.ErrResetTokenInvalid):
		response.WriteErr(w, http.StatusBadRequest, "token invalid or expired")
	case errors.Is(err, services.ErrUnauthorized):
		response.WriteErr(w, http.StatusForbidden, "operation not allowed")
	default:
		log.Printf("auth handler: %v", err)
		response.WriteErr(w, http.StatusInternalServerError, "internal error")
	}
}
