// Package storage defines the persistence boundary for support records.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested support record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a requested write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
)

// UserRecord stores one platform user row.
type UserRecord struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// SupportRequestRecord stores one support ticket row.
type SupportRequestRecord struct {
	ID        string
	UserID    string
	Status    string
	CreatedAt time.Time
}

// ProgressLogRecord stores one step/puzzle progress row.
type ProgressLogRecord struct {
	ID        string
	UserID    string
	StepID    string
	PuzzleID  string
	Status    string
	Details   string
	UpdatedAt time.Time
}

// HintRecord stores one hint row.
type HintRecord struct {
	ID               string
	UserID           string
	SupportRequestID string
	StepID           string
	PuzzleID         string
	Message          string
	SentByID         string
	SentByRole       string
	Status           string
	CreatedAt        time.Time
	ViewedAt         *time.Time
}

// AuditEventRecord stores one immutable audit trail row.
type AuditEventRecord struct {
	ID           int64
	ActorID      string
	ActorRole    string
	Action       string
	TargetUserID string
	MetadataJSON string
	Timestamp    time.Time
}

// SupportStore persists and reads support workflow records.
type SupportStore interface {
	PutUser(ctx context.Context, record UserRecord) error
	GetUser(ctx context.Context, userID string) (UserRecord, error)
	PutSupportRequest(ctx context.Context, record SupportRequestRecord) error
	GetOpenSupportRequest(ctx context.Context, userID string) (SupportRequestRecord, error)
	PutProgressLog(ctx context.Context, record ProgressLogRecord) error
	ListProgressLogsByUser(ctx context.Context, userID string) ([]ProgressLogRecord, error)
	PutHint(ctx context.Context, record HintRecord) error
	GetHint(ctx context.Context, hintID string) (HintRecord, error)
	ListHintsByUser(ctx context.Context, userID string) ([]HintRecord, error)
	UpdateHintStatus(ctx context.Context, hintID string, status string, viewedAt time.Time) (HintRecord, error)
}

// AuditStore persists the append-only audit trail.
type AuditStore interface {
	AppendAuditEvent(ctx context.Context, record AuditEventRecord) error
	ListAuditEvents(ctx context.Context, limit int) ([]AuditEventRecord, error)
}
