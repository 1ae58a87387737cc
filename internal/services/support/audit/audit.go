// Package audit records access-sensitive support actions.
package audit

import (
	"context"
	"log"
	"time"
)

// Action identifies the audited support operation.
type Action string

const (
	ActionViewUserProgress Action = "VIEW_USER_PROGRESS"
	ActionSendHint         Action = "SEND_HINT"
	ActionViewHintList     Action = "VIEW_HINT_LIST"
	ActionViewHint         Action = "VIEW_HINT"
)

// Event is one immutable audit trail entry.
type Event struct {
	ActorID      string
	ActorRole    string
	Action       Action
	TargetUserID string
	Metadata     map[string]string
	Timestamp    time.Time
}

// Store is the append-only audit persistence boundary.
type Store interface {
	AppendAuditEvent(ctx context.Context, event Event) error
}

// Recorder appends audit events without ever failing the caller.
//
// Audit gaps are tolerated; business operations are not blocked by audit
// store outages. Store failures are logged and swallowed.
type Recorder struct {
	store Store
	clock func() time.Time
	logf  func(format string, args ...any)
}

// NewRecorder creates an audit recorder backed by the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{
		store: store,
		clock: time.Now,
		logf:  log.Printf,
	}
}

// NewRecorderWithClock creates a recorder with an injected clock and logger.
func NewRecorderWithClock(store Store, clock func() time.Time, logf func(format string, args ...any)) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Recorder{store: store, clock: clock, logf: logf}
}

// Record appends one audit event, stamping the timestamp when unset.
// It is a no-op when the recorder or store is nil.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.store == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.clock().UTC()
	} else {
		event.Timestamp = event.Timestamp.UTC()
	}
	if err := r.store.AppendAuditEvent(ctx, event); err != nil {
		r.logf("audit: append %s event for actor %s: %v", event.Action, event.ActorID, err)
	}
}
