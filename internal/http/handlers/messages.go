package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"chat-backend/internal/models"
	"chat-backend/internal/response"
	"chat-backend/internal/services"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type messageDTO struct {
	ID         uint      `json:"id"`
	Content    string    `json:"content"`
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	SentAt     time.Time `json:"sentAt"`
	IsRead     bool      `json:"isRead"`
	Mine       bool      `json:"mine"`
}

func toMessageDTO(m *models.Message, viewer uuid.UUID) messageDTO {
	return messageDTO{
		ID:         m.ID,
		Content:    m.Content,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		SentAt:     m.SentAt,
		IsRead:     m.IsRead,
		Mine:       m.SenderID == viewer,
	}
}

// History returns everything the user sent or received; the catch-up path for
// clients that were offline during live dispatch.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	msgs, err := h.messages.History(r.Context(), userID)
	if err != nil {
		log.Printf("message history: %v", err)
		response.WriteErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]messageDTO, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageDTO(&msgs[i], userID))
	}
	response.WriteJSON(w, http.StatusOK, out)
}

// Conversation returns the exchange with one peer and marks their messages
// read.
func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	peerID, err := uuid.Parse(r.PathValue("peerId"))
	if err != nil {
		response.WriteErr(w, http.StatusBadRequest, "invalid peer id")
		return
	}

	msgs, err := h.messages.Conversation(r.Context(), userID, peerID)
	if err != nil {
		log.Printf("conversation: %v", err)
		response.WriteErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.messages.MarkRead(r.Context(), userID, peerID); err != nil {
		log.Printf("mark read: %v", err)
	}

	out := make([]messageDTO, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageDTO(&msgs[i], userID))
	}
	response.WriteJSON(w, http.StatusOK, out)
}
