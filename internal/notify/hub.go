// Package notify holds the presence registry and the notification
// dispatchers. Presence lives in process memory only: a user has at most one
// live session, delivery is fire-and-forget, and an event for a user with no
// session is dropped.
package notify

import (
	"log"
	"sync"
	"time"

	"timeoff-tracker-go/internal/models"

	"github.com/google/uuid"
)

const sendBuffer = 16

// Session is one user's live connection. UserID and Role are fixed at
// registration time, alongside the connection id, so role broadcasts never
// depend on data attached to the connection later.
type Session struct {
	UserID string
	Role   string
	ConnID string

	mu     sync.Mutex
	send   chan models.Notification
	closed bool
}

func NewSession(userID, role string) *Session {
	return &Session{
		UserID: userID,
		Role:   role,
		ConnID: uuid.NewString(),
		send:   make(chan models.Notification, sendBuffer),
	}
}

// Messages is the stream the transport write loop drains.
func (s *Session) Messages() <-chan models.Notification {
	return s.send
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// push enqueues without blocking. A full buffer means the consumer stopped
// draining; the event is dropped rather than stalling the caller. The mutex
// serializes push against close, so a dispatcher holding a stale session
// (displaced or unregistered mid-send) drops instead of hitting a closed
// channel.
func (s *Session) push(n models.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- n:
		return true
	default:
		return false
	}
}

// Hub maps each user id to at most one live session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// Register stores the session for its user. A prior session for the same
// user is displaced and its channel closed (reconnect replaces the old one).
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	prev := h.sessions[s.UserID]
	h.sessions[s.UserID] = s
	h.mu.Unlock()

	if prev != nil {
		prev.close()
		log.Printf("user %s reconnected, replacing session %s", s.UserID, prev.ConnID)
	}
}

// Unregister removes the session only if it is still the registered one for
// its user. A disconnect of an already-displaced session is a no-op.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if current, ok := h.sessions[s.UserID]; ok && current.ConnID == s.ConnID {
		delete(h.sessions, s.UserID)
	}
	h.mu.Unlock()

	s.close()
}

// Lookup returns the user's live session, or nil.
func (h *Hub) Lookup(userID string) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[userID]
}

func newNotification(eventType string, data map[string]any) models.Notification {
	return models.Notification{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// SendToUser delivers one event to one user's current session. Returns false
// when the user has no session or the session stopped draining; in either
// case the event is gone, there is no queue.
func (h *Hub) SendToUser(userID, eventType string, data map[string]any) bool {
	s := h.Lookup(userID)
	if s == nil {
		droppedTotal.WithLabelValues("offline").Inc()
		return false
	}
	if !s.push(newNotification(eventType, data)) {
		droppedTotal.WithLabelValues("slow").Inc()
		return false
	}
	deliveredTotal.Inc()
	return true
}

// SendToRole delivers one event to every connected user with the given role
// and returns the delivered count.
func (h *Hub) SendToRole(role, eventType string, data map[string]any) int {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s.Role == role {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.push(newNotification(eventType, data)) {
			delivered++
			deliveredTotal.Inc()
		} else {
			droppedTotal.WithLabelValues("slow").Inc()
		}
	}
	broadcastTotal.Inc()
	return delivered
}

// Broadcast delivers one event to every connected user.
func (h *Hub) Broadcast(eventType string, data map[string]any) int {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.push(newNotification(eventType, data)) {
			delivered++
			deliveredTotal.Inc()
		} else {
			droppedTotal.WithLabelValues("slow").Inc()
		}
	}
	broadcastTotal.Inc()
	return delivered
}
