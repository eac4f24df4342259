package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-backend/internal/chat"
	"chat-backend/pkg/security"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades authenticated clients and bridges their sockets with the
// registry. The handshake carries the access token as a query parameter
// because browsers cannot set headers on websocket requests.
type WSHandler struct {
	registry *chat.Registry
	jwt      security.JWTConfig
}

func NewWSHandler(registry *chat.Registry, jwt security.JWTConfig) *WSHandler {
	return &WSHandler{registry: registry, jwt: jwt}
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	claims, err := security.FromQuery(h.jwt, r, "token")
	if err != nil {
		http.Error(w, "invalid access token", http.StatusUnauthorized)
		return
	}
	userID, err := claims.SubjectID()
	if err != nil {
		http.Error(w, "invalid access token", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	conn := h.registry.Register(userID, claims.Username)
	log.Printf("user %s connected (%s)", claims.Username, conn.ID)

	go h.writePump(ws, conn)
	h.readPump(r, ws, conn, userID)
}

// readPump consumes inbound envelopes until the socket dies, then unregisters.
// Unregister closes conn.Done(), which stops the write pump too.
func (h *WSHandler) readPump(r *http.Request, ws *websocket.Conn, conn *chat.Connection, userID uuid.UUID) {
	defer func() {
		h.registry.Unregister(conn)
		ws.Close()
		log.Printf("user %s disconnected (%s)", conn.Username, conn.ID)
	}()

	ws.SetReadLimit(maxMsgSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read (%s): %v", conn.ID, err)
			}
			return
		}

		var env chat.Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.ToUserID == uuid.Nil {
			conn.Enqueue([]byte(`{"error":"invalid message"}`))
			continue
		}

		if err := h.registry.Dispatch(r.Context(), userID, env); err != nil {
			log.Printf("dispatch (%s): %v", conn.ID, err)
			conn.Enqueue([]byte(`{"error":"message not delivered"}`))
		}
	}
}

// writePump is the connection's single socket writer: it drains the outbound
// queue and keeps the peer alive with pings.
func (h *WSHandler) writePump(ws *websocket.Conn, conn *chat.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case payload := <-conn.Outbound():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-conn.Done():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
