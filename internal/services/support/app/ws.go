package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/emberworks/questline/internal/services/support/realtime"
	"golang.org/x/net/websocket"
)

type wsActorContextKey struct{}

// wsConn serializes writes to one websocket peer. The hub may dispatch from
// multiple goroutines, so frames share a single locked encoder.
type wsConn struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSConn(encoder *json.Encoder) *wsConn {
	return &wsConn{encoder: encoder}
}

func (c *wsConn) Send(payload realtime.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encoder.Encode(payload)
}

func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFromRequest(r)
	if err != nil {
		log.Printf("support: websocket unauthorized: remote=%s err=%v", r.RemoteAddr, err)
		writeError(w, err)
		return
	}

	ctx := context.WithValue(r.Context(), wsActorContextKey{}, actor.ID)
	r = r.WithContext(ctx)

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		h.handleWSConn(conn)
	})
	wsHandler.ServeHTTP(w, r)
}

func (h *handler) handleWSConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	userID := ""
	if request := conn.Request(); request != nil {
		if resolved, ok := request.Context().Value(wsActorContextKey{}).(string); ok {
			userID = strings.TrimSpace(resolved)
		}
	}
	if userID == "" {
		return
	}

	peer := newWSConn(json.NewEncoder(conn))
	h.hub.Register(userID, peer)
	defer h.hub.Unregister(peer)

	// Inbound frames are drained and discarded; this surface only pushes.
	decoder := json.NewDecoder(conn)
	for {
		var frame json.RawMessage
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				log.Printf("support: websocket read for user=%q: %v", userID, err)
			}
			return
		}
	}
}
