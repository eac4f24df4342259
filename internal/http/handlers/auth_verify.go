package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"chat-backend/internal/response"
)

// VerifyEmail consumes the uuid token from the mailed verification link.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(r.URL.Query().Get("token"))
	if err != nil {
		response.WriteErr(w, http.StatusBadRequest, "token invalid or expired")
		return
	}

	if err := h.auth.VerifyEmail(r.Context(), token, clientIP(r)); err != nil {
		writeAuthErr(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}
