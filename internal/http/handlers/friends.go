package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"chat-backend/internal/response"
	"chat-backend/internal/services"
)

type FriendHandler struct {
	friends *services.FriendService
}

func NewFriendHandler(friends *services.FriendService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	rows, err := h.friends.Friends(r.Context(), userID)
	if err != nil {
		log.Printf("list friends: %v", err)
		response.WriteErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	type friendDTO struct {
		userDTO
		Since time.Time `json:"since"`
	}
	out := make([]friendDTO, 0, len(rows))
	for i := range rows {
		if rows[i].FriendUser == nil {
			continue
		}
		out = append(out, friendDTO{userDTO: toUserDTO(rows[i].FriendUser), Since: rows[i].CreatedAt})
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	friendID, err := uuid.Parse(r.PathValue("friendId"))
	if err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid friend id")
		return
	}

	if err := h.friends.RemoveFriend(r.Context(), userID, friendID); err != nil {
		log.Printf("remove friend: %v", err)
		response.WriteErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "friend removed"})
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var in struct {
		ToUserID uuid.UUID `json:"toUserId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.ToUserID == uuid.Nil {
		response.WriteErr(w, http.StatusBadRequest, "toUserId is required")
		return
	}

	req, err := h.friends.SendRequest(r.Context(), userID, in.ToUserID)
	if err != nil {
		writeFriendErr(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, map[string]any{"id": req.ID, "sentAt": req.SentAt})
}

func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	reqs, err := h.friends.PendingRequests(r.Context(), userID)
	if err != nil {
		log.Printf("list friend requests: %v", err)
		response.WriteErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	type requestDTO struct {
		ID     uint      `json:"id"`
		Sender userDTO   `json:"sender"`
		SentAt time.Time `json:"sentAt"`
	}
	out := make([]requestDTO, 0, len(reqs))
	for i := range reqs {
		if reqs[i].Sender == nil {
			continue
		}
		out = append(out, requestDTO{ID: reqs[i].ID, Sender: toUserDTO(reqs[i].Sender), SentAt: reqs[i].SentAt})
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	reqID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid request id")
		return
	}

	if err := h.friends.AcceptRequest(r.Context(), userID, uint(reqID)); err != nil {
		writeFriendErr(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "request accepted"})
}

func (h *FriendHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	reqID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid request id")
		return
	}

	if err := h.friends.DeclineRequest(r.Context(), userID, uint(reqID)); err != nil {
		writeFriendErr(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "request removed"})
}

func writeFriendErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrRequestNotFound):
		response.WriteErr(w, http.StatusNotFound, "friend request not found")
	case errors.Is(err, services.ErrAlreadyFriends):
		response.WriteErr(w, http.StatusConflict, "already friends")
	case errors.Is(err, services.ErrSelfRequest):
		response.WriteErr(w, http.StatusBadRequest, "cannot befriend yourself")
	case errors.Is(err, services.ErrUnauthorized):
		response.WriteErr(w, http.StatusForbidden, "operation not allowed")
	default:
		log.Printf("friend handler: %v", err)
		response.WriteErr(w, http.StatusInternalServerError, "internal error")
	}
}
