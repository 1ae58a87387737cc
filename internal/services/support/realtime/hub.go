// Package realtime delivers support notifications to live user connections.
package realtime

import (
	"log"
	"sync"
	"time"
)

// PayloadType classifies a real-time notification payload.
type PayloadType string

const (
	PayloadTypeHint     PayloadType = "HINT"
	PayloadTypeFeedback PayloadType = "FEEDBACK"
	PayloadTypeGeneric  PayloadType = "GENERIC"
)

// Payload is the notification frame pushed to live connections.
type Payload struct {
	Type     PayloadType `json:"type"`
	HintID   string      `json:"hint_id,omitempty"`
	Message  string      `json:"message"`
	StepID   string      `json:"step_id,omitempty"`
	PuzzleID string      `json:"puzzle_id,omitempty"`
	SentAt   time.Time   `json:"sent_at,omitzero"`
}

// Conn is one live connection capable of receiving payloads.
type Conn interface {
	Send(payload Payload) error
}

// Hub tracks which live connections belong to which user and pushes
// payloads to all of a user's connections.
//
// Delivery is best-effort: a user with no live connections only produces a
// warning log, and a failed send on one connection does not prevent delivery
// attempts to the others.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[Conn]struct{}
	logf  func(format string, args ...any)
}

// NewHub creates an empty connection hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[Conn]struct{}),
		logf:  log.Printf,
	}
}

// NewHubWithLogger creates a hub with an injected logger.
func NewHubWithLogger(logf func(format string, args ...any)) *Hub {
	if logf == nil {
		logf = log.Printf
	}
	return &Hub{
		conns: make(map[string]map[Conn]struct{}),
		logf:  logf,
	}
}

// Register associates a live connection with a user. Registering the same
// connection twice is a no-op.
func (h *Hub) Register(userID string, conn Conn) {
	if h == nil || userID == "" || conn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[Conn]struct{})
		h.conns[userID] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes a connection from whichever user currently holds it.
// Empty connection sets are dropped.
func (h *Hub) Unregister(conn Conn) {
	if h == nil || conn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.conns {
		if _, ok := set[conn]; ok {
			delete(set, conn)
			if len(set) == 0 {
				delete(h.conns, userID)
			}
			return
		}
	}
}

// ConnectionCount reports how many live connections a user currently has.
func (h *Hub) ConnectionCount(userID string) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

// Dispatch pushes the payload to every live connection of the user.
// With zero live connections it logs a warning and returns; per-connection
// send failures are logged and do not affect the other connections.
func (h *Hub) Dispatch(userID string, payload Payload) {
	if h == nil || userID == "" {
		return
	}

	h.mu.Lock()
	set := h.conns[userID]
	targets := make([]Conn, 0, len(set))
	for conn := range set {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		h.logf("realtime: notification for user %s not delivered in real time: no live connections", userID)
		return
	}
	for _, conn := range targets {
		if err := conn.Send(payload); err != nil {
			h.logf("realtime: push %s payload to user %s connection: %v", payload.Type, userID, err)
		}
	}
}
