package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-backend/internal/models"
)

const sendQueueSize = 64

// Envelope is the wire message shape. The same JSON is echoed back verbatim
// to every connection it is delivered to.
type Envelope struct {
	ToUserID uuid.UUID `json:"ToUserId"`
	Content  string    `json:"Content"`
}

// MessageStore persists inbound messages. Dispatch stores before fanning out,
// so a crash after delivery never loses a message that was actually seen.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
}

// Connection is one live transport handle of an authenticated user. Outbound
// traffic goes through a buffered queue drained by a single writer, so no two
// logical writers ever touch the same socket.
type Connection struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Username    string
	ConnectedAt time.Time

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// Outbound is the queue the connection's writer goroutine drains.
func (c *Connection) Outbound() <-chan []byte { return c.send }

// Done is closed when the connection is unregistered.
func (c *Connection) Done() <-chan struct{} { return c.closed }

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// Enqueue offers a payload without blocking. A closed connection or a full
// queue reports false; the caller treats the connection as dead.
func (c *Connection) Enqueue(payload []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Registry tracks every open connection per user and fans messages out to the
// sender's and receiver's buckets. One value per process, shared by reference
// with every connection handler.
type Registry struct {
	mu      sync.RWMutex
	buckets map[uuid.UUID]map[uuid.UUID]*Connection
	store   MessageStore
}

func NewRegistry(store MessageStore) *Registry {
	return &Registry{
		buckets: make(map[uuid.UUID]map[uuid.UUID]*Connection),
		store:   store,
	}
}

// Register creates the user's bucket if absent and inserts a new connection.
// Multiple connections per user (tabs, devices) are independent.
func (r *Registry) Register(userID uuid.UUID, username string) *Connection {
	conn := &Connection{
		ID:          uuid.New(),
		UserID:      userID,
		Username:    username,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, sendQueueSize),
		closed:      make(chan struct{}),
	}

	r.mu.Lock()
	bucket, ok := r.buckets[userID]
	if !ok {
		bucket = make(map[uuid.UUID]*Connection)
		r.buckets[userID] = bucket
	}
	bucket[conn.ID] = conn
	r.mu.Unlock()

	return conn
}

// Unregister removes the connection from its bucket and drops the bucket when
// it becomes empty, so offline users leave no ghost state behind. Safe to call
// more than once.
func (r *Registry) Unregister(conn *Connection) {
	r.mu.Lock()
	if bucket, ok := r.buckets[conn.UserID]; ok {
		delete(bucket, conn.ID)
		if len(bucket) == 0 {
			delete(r.buckets, conn.UserID)
		}
	}
	r.mu.Unlock()

	conn.close()
}

// Dispatch persists the inbound envelope and then delivers it to every open
// connection of the receiver and of the sender (so all of the sender's own
// tabs update immediately). An offline receiver just means no live delivery;
// the message is still retrievable via history.
func (r *Registry) Dispatch(ctx context.Context, senderID uuid.UUID, env Envelope) error {
	msg := models.Message{
		Content:    env.Content,
		SenderID:   senderID,
		ReceiverID: env.ToUserID,
		SentAt:     time.Now(),
	}
	if err := r.store.SaveMessage(ctx, &msg); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	// Snapshot both buckets before delivering: a slow or dying socket must
	// never block Register/Unregister of other connections.
	r.mu.RLock()
	targets := make([]*Connection, 0, 8)
	for _, c := range r.buckets[env.ToUserID] {
		targets = append(targets, c)
	}
	if senderID != env.ToUserID {
		for _, c := range r.buckets[senderID] {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if !c.Enqueue(payload) {
			// Dead or saturated connection: delivery is advisory, skip and
			// prune opportunistically.
			log.Printf("pruning unresponsive connection %s of user %s", c.ID, c.UserID)
			r.Unregister(c)
		}
	}
	return nil
}

// ConnectionCount reports how many connections a user currently has open.
func (r *Registry) ConnectionCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets[userID])
}

// Shutdown closes every tracked connection and clears all buckets.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	for _, bucket := range r.buckets {
		for _, c := range bucket {
			c.close()
		}
	}
	r.buckets = make(map[uuid.UUID]map[uuid.UUID]*Connection)
	r.mu.Unlock()
}
