package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"chat-backend/internal/http/middleware"
	"chat-backend/internal/models"
	"chat-backend/internal/response"
)

// clientIP prefers X-Forwarded-For (first hop) and falls back to the socket
// peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// currentUserID resolves the authenticated user id or writes a 401.
func currentUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := middleware.ClaimsFrom(r)
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "invalid token")
		return uuid.Nil, false
	}
	id, err := claims.SubjectID()
	if err != nil {
		response.WriteErr(w, http.StatusUnauthorized, "invalid token")
		return uuid.Nil, false
	}
	return id, true
}

type userDTO struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

// toUserDTO shapes a user for the wire; credentials never leave the server.
func toUserDTO(u *models.User) userDTO {
	return userDTO{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
