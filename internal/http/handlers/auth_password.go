package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"chat-backend/internal/response"
)

// RecoverPassword always answers with the same message, registered or not.
func (h *AuthHandler) RecoverPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Email) == "" {
		response.WriteErr(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.auth.RecoverPassword(r.Context(), strings.TrimSpace(in.Email), clientIP(r)); err != nil {
		writeAuthErr(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "if the email is registered, a reset link has been sent",
	})
}

// ValidateResetToken backs the redirect check before the reset form is shown.
func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(r.URL.Query().Get("token"))
	if err != nil {
		response.WriteJSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}
	ok, err := h.auth.ValidateResetToken(r.Context(), token)
	if err != nil {
		writeAuthErr(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	token, err := uuid.Parse(in.Token)
	if err != nil {
		response.WriteErr(w, http.StatusBadRequest, "token invalid or expired")
		return
	}

	if err := h.auth.ResetPassword(r.Context(), token, in.Password, in.ConfirmPassword, clientIP(r)); err != nil {
		writeAuthErr(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
