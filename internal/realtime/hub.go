// Package realtime pushes stored notifications to the recipient's open
// websocket sessions.
//
// A Hub is the in-process registry of sessions, keyed by user id. A user
// may hold several sessions at once (two tabs, phone and laptop) and every
// one of them receives the push. Delivery is best effort: a session whose
// send buffer is full misses the message and catches up from the log on its
// next profile read.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sakif/chirp/internal/model"
)

// sendBuffer is how many undelivered messages a session may queue before
// new ones are dropped for it.
const sendBuffer = 16

// Message is the JSON frame exchanged over the socket.
type Message struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
	Data   any    `json:"data,omitempty"`
}

const (
	TypeJoin         = "join"
	TypeNotification = "notification"
)

// Session is one open websocket belonging to a joined user.
type Session struct {
	ID     uuid.UUID
	UserID string
	send   chan Message
}

func newSession(userID string) *Session {
	return &Session{
		ID:     uuid.New(),
		UserID: userID,
		send:   make(chan Message, sendBuffer),
	}
}

// Send returns the channel the session's writer drains. It is closed when
// the session is unregistered.
func (s *Session) Send() <-chan Message { return s.send }

// Hub tracks live sessions per user and implements service.Notifier.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[uuid.UUID]*Session
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[uuid.UUID]*Session),
		logger:   logger,
	}
}

// Register creates a session for userID and starts routing that user's
// notifications to it.
func (h *Hub) Register(userID string) *Session {
	s := newSession(userID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[userID]; !ok {
		h.sessions[userID] = make(map[uuid.UUID]*Session)
	}
	h.sessions[userID][s.ID] = s

	h.logger.Debug("session registered",
		slog.String("userID", userID),
		slog.String("session", s.ID.String()),
		slog.Int("sessions", len(h.sessions[userID])),
	)
	return s
}

// Unregister removes the session and closes its send channel. Calling it
// twice is harmless.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userSessions, ok := h.sessions[s.UserID]
	if !ok {
		return
	}
	if _, ok := userSessions[s.ID]; !ok {
		return
	}

	delete(userSessions, s.ID)
	close(s.send)
	if len(userSessions) == 0 {
		delete(h.sessions, s.UserID)
	}

	h.logger.Debug("session unregistered",
		slog.String("userID", s.UserID),
		slog.String("session", s.ID.String()),
	)
}

// Publish delivers n to every session of userID without blocking.
func (h *Hub) Publish(_ context.Context, userID string, n *model.Notification) {
	h.Deliver(userID, Message{Type: TypeNotification, Data: n})
}

// Deliver hands msg to each of userID's sessions. It is also the entry point
// for messages arriving from other instances over the bus.
func (h *Hub) Deliver(userID string, msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.sessions[userID] {
		select {
		case s.send <- msg:
			delivered++
		default:
			h.logger.Warn("session buffer full, dropping message",
				slog.String("userID", userID),
				slog.String("session", s.ID.String()),
			)
		}
	}
	return delivered
}

// SessionCount reports how many sessions userID has open.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Close unregisters every session. Their writers see the closed channel and
// hang up.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, userSessions := range h.sessions {
		for _, s := range userSessions {
			close(s.send)
		}
		delete(h.sessions, userID)
	}
}
