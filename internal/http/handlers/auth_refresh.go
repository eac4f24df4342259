package handlers

import (
	"log"
	"net/http"
	"time"

	"chat-backend/internal/response"
)

const refreshCookieName = "refreshToken"

// Refresh rotates the refresh token carried by the HttpOnly cookie and
// rewrites the cookie with its replacement. Every token failure collapses to
// the same 401 on the wire; the precise cause stays in the server logs.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		response.WriteErr(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	res, err := h.tokens.Rotate(r.Context(), cookie.Value, clientIP(r))
	if err != nil {
		// The wire answer is always the same; the cause stays here.
		log.Printf("refresh token rejected for %s: %v", clientIP(r), err)
		clearRefreshCookie(w)
		response.WriteErr(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	setRefreshCookie(w, res.RefreshToken.Token, res.RefreshToken.ExpiresAt)
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"accessToken":     res.AccessToken,
		"accessExpiresIn": res.AccessExpiresIn,
		"user":            toUserDTO(res.User),
	})
}

func setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
