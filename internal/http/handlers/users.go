package handlers

import (
	"log"
	"net/http"
	"strings"

	"chat-backend/internal/response"
	"chat-backend/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Search finds users by username prefix for the friend-request UI.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		response.WriteErr(w, http.StatusBadRequest, "query is required")
		return
	}

	users, err := h.users.Search(r.Context(), userID, query, 20)
	if err != nil {
		log.Printf("user search: %v", err)
		response.WriteErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]userDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	response.WriteJSON(w, http.StatusOK, out)
}
