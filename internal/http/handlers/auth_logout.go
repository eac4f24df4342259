package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"chat-backend/internal/http/middleware"
	"chat-backend/internal/response"
)

// Logout revokes the presented refresh token. With a valid access token but
// no cookie it revokes the user's whole chain (logout everywhere).
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		presented = cookie.Value
	}

	userID := uuid.Nil
	if claims, ok := middleware.ClaimsFrom(r); ok {
		if id, err := claims.SubjectID(); err == nil {
			userID = id
		}
	}

	if err := h.auth.Logout(r.Context(), presented, userID, clientIP(r)); err != nil {
		writeAuthErr(w, err)
		return
	}

	clearRefreshCookie(w)
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
