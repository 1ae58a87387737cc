package realtime

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu       sync.Mutex
	payloads []Payload
	err      error
}

func (f *fakeConn) Send(payload Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeConn) received() []Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Payload(nil), f.payloads...)
}

func TestRegisterIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	conn := &fakeConn{}
	hub.Register("u1", conn)
	hub.Register("u1", conn)

	if got := hub.ConnectionCount("u1"); got != 1 {
		t.Fatalf("connection count = %d, want 1", got)
	}
}

func TestDispatchReachesAllConnections(t *testing.T) {
	t.Parallel()

	hub := NewHubWithLogger(func(string, ...any) {})
	first := &fakeConn{}
	second := &fakeConn{}
	hub.Register("u1", first)
	hub.Register("u1", second)
	hub.Register("u2", &fakeConn{})

	payload := Payload{
		Type:    PayloadTypeHint,
		HintID:  "h1",
		Message: "try the left lever",
		StepID:  "step-3",
		SentAt:  time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	hub.Dispatch("u1", payload)

	for i, conn := range []*fakeConn{first, second} {
		got := conn.received()
		if len(got) != 1 {
			t.Fatalf("conn %d received %d payloads, want 1", i, len(got))
		}
		if got[0].HintID != "h1" || got[0].Type != PayloadTypeHint {
			t.Fatalf("conn %d payload = %+v", i, got[0])
		}
	}
}

func TestDispatchNoConnectionsWarnsAndReturns(t *testing.T) {
	t.Parallel()

	var logged []string
	hub := NewHubWithLogger(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	})

	hub.Dispatch("ghost", Payload{Type: PayloadTypeHint, Message: "hello"})

	if len(logged) != 1 {
		t.Fatalf("expected one warning, got %d", len(logged))
	}
	if !strings.Contains(logged[0], "not delivered in real time") {
		t.Fatalf("unexpected warning: %q", logged[0])
	}
}

func TestDispatchFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	var logged []string
	hub := NewHubWithLogger(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	})
	broken := &fakeConn{err: errors.New("connection reset")}
	healthy := &fakeConn{}
	hub.Register("u1", broken)
	hub.Register("u1", healthy)

	hub.Dispatch("u1", Payload{Type: PayloadTypeHint, Message: "hint"})

	if got := healthy.received(); len(got) != 1 {
		t.Fatalf("healthy conn received %d payloads, want 1", len(got))
	}
	if len(logged) != 1 || !strings.Contains(logged[0], "connection reset") {
		t.Fatalf("expected one failure log naming the cause, got %v", logged)
	}
}

func TestUnregisterDropsEmptySets(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	conn := &fakeConn{}
	hub.Register("u1", conn)
	hub.Unregister(conn)

	if got := hub.ConnectionCount("u1"); got != 0 {
		t.Fatalf("connection count = %d, want 0", got)
	}
	hub.mu.Lock()
	_, exists := hub.conns["u1"]
	hub.mu.Unlock()
	if exists {
		t.Fatal("expected empty connection set to be removed")
	}

	// Unregistering an unknown connection is a no-op.
	hub.Unregister(&fakeConn{})
}

func TestConcurrentRegisterDispatchUnregister(t *testing.T) {
	t.Parallel()

	hub := NewHubWithLogger(func(string, ...any) {})
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := &fakeConn{}
			userID := fmt.Sprintf("u%d", i%4)
			hub.Register(userID, conn)
			hub.Dispatch(userID, Payload{Type: PayloadTypeGeneric, Message: "ping"})
			hub.Unregister(conn)
		}(i)
	}
	wg.Wait()

	for i := range 4 {
		if got := hub.ConnectionCount(fmt.Sprintf("u%d", i)); got != 0 {
			t.Fatalf("user u%d still has %d connections", i, got)
		}
	}
}
