package http

import (
	"net/http"

	"chat-backend/internal/http/handlers"
	"chat-backend/internal/http/middleware"
	"chat-backend/internal/response"
	"chat-backend/pkg/security"
)

// Deps bundles everything the router wires together.
type Deps struct {
	JWT      security.JWTConfig
	Auth     *handlers.AuthHandler
	Messages *handlers.MessageHandler
	Friends  *handlers.FriendHandler
	Users    *handlers.UserHandler
	WS       *handlers.WSHandler
}

// NewRouter builds the full route table. Everything outside /api/auth and the
// health check requires a bearer token; the websocket endpoint authenticates
// via query parameter inside its own handler.
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireJWT(d.JWT, h)
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/auth/register", d.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", d.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh-token", d.Auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", protected(d.Auth.Logout))
	mux.HandleFunc("GET /api/auth/verify", d.Auth.VerifyEmail)
	mux.HandleFunc("POST /api/auth/recovery-password", d.Auth.RecoverPassword)
	mux.HandleFunc("GET /api/auth/validate-password", d.Auth.ValidateResetToken)
	mux.HandleFunc("POST /api/auth/reset-password", d.Auth.ResetPassword)

	mux.HandleFunc("GET /api/messages", protected(d.Messages.History))
	mux.HandleFunc("GET /api/messages/{peerId}", protected(d.Messages.Conversation))

	mux.HandleFunc("GET /api/friends", protected(d.Friends.List))
	mux.HandleFunc("DELETE /api/friends/{friendId}", protected(d.Friends.Remove))
	mux.HandleFunc("GET /api/friend-requests", protected(d.Friends.ListRequests))
	mux.HandleFunc("POST /api/friend-requests", protected(d.Friends.SendRequest))
	mux.HandleFunc("POST /api/friend-requests/{id}/accept", protected(d.Friends.AcceptRequest))
	mux.HandleFunc("DELETE /api/friend-requests/{id}", protected(d.Friends.DeclineRequest))

	mux.HandleFunc("GET /api/users", protected(d.Users.Search))

	mux.HandleFunc("GET /ws", d.WS.Serve)

	return mux
}
