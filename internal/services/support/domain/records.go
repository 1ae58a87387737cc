package domain

import "time"

// RequestStatus is the lifecycle state of a support request.
type RequestStatus string

const (
	RequestStatusOpen   RequestStatus = "OPEN"
	RequestStatusClosed RequestStatus = "CLOSED"
)

// HintStatus is the lifecycle state of a hint.
type HintStatus string

const (
	HintStatusUnread HintStatus = "UNREAD"
	HintStatusViewed HintStatus = "VIEWED"
)

// ProgressStatus is the state of one progress log entry.
type ProgressStatus string

const (
	ProgressStatusInProgress ProgressStatus = "IN_PROGRESS"
	ProgressStatusStuck      ProgressStatus = "STUCK"
	ProgressStatusDone       ProgressStatus = "DONE"
)

// User is a platform player record. Read-only for this service.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// SupportRequest is a user-initiated, specialist-answerable ticket.
// It is created elsewhere; this service only reads it to authorize
// hint creation and progress viewing.
type SupportRequest struct {
	ID        string
	UserID    string
	Status    RequestStatus
	CreatedAt time.Time
}

// ProgressLog is one step/puzzle progress entry for a user. Read-only.
type ProgressLog struct {
	ID        string
	UserID    string
	StepID    string
	PuzzleID  string
	Status    ProgressStatus
	Details   string
	UpdatedAt time.Time
}

// Hint is a targeted message from a specialist to a user about a
// specific step or puzzle. The target user owns it for read and
// viewed-transition purposes; the sending specialist authored it.
type Hint struct {
	ID               string
	UserID           string
	SupportRequestID string
	StepID           string
	PuzzleID         string
	Message          string
	SentByID         string
	SentByRole       Role
	Status           HintStatus
	CreatedAt        time.Time
	ViewedAt         *time.Time
}
