package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/emberworks/questline/internal/errors"
	"github.com/emberworks/questline/internal/platform/id"
	"github.com/emberworks/questline/internal/services/support/audit"
	"github.com/emberworks/questline/internal/services/support/realtime"
)

var (
	// ErrNotFound indicates a referenced record was not found.
	ErrNotFound = errors.New("support record not found")
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("support store is not configured")
	// ErrIDGeneratorExhausted indicates a fixed test ID sequence was exhausted.
	ErrIDGeneratorExhausted = errors.New("support id generator exhausted")
)

// Store is the support record persistence boundary consumed by the service.
type Store interface {
	FindUser(ctx context.Context, userID string) (User, error)
	FindOpenSupportRequest(ctx context.Context, userID string) (SupportRequest, error)
	CreateHint(ctx context.Context, hint Hint) error
	FindHintsByUser(ctx context.Context, userID string) ([]Hint, error)
	FindHint(ctx context.Context, hintID string) (Hint, error)
	UpdateHintStatus(ctx context.Context, hintID string, status HintStatus, viewedAt time.Time) (Hint, error)
	FindProgressLogs(ctx context.Context, userID string) ([]ProgressLog, error)
}

// Dispatcher pushes best-effort real-time payloads to a user's live connections.
type Dispatcher interface {
	Dispatch(userID string, payload realtime.Payload)
}

// CreateHintInput describes one hint send request.
type CreateHintInput struct {
	TargetUserID string
	StepID       string
	PuzzleID     string
	Message      string
}

// HintList is the result of listing a user's hints.
type HintList struct {
	Hints       []Hint
	UnreadCount int
}

// ProgressView is the specialist-facing progress summary for one user.
type ProgressView struct {
	User              User
	SupportRequest    SupportRequest
	ProgressLogs      []ProgressLog
	StuckStepOrPuzzle *ProgressLog
}

// Service orchestrates the hint lifecycle and progress viewing.
//
// Every operation runs the same pipeline: the access policy gates the
// request, the primary store mutation or read executes, then an audit event
// and (for hint creation) a real-time notification are attempted. Audit and
// notification failures never affect the primary outcome, and an audit
// failure does not prevent the notification push.
type Service struct {
	store      Store
	audit      *audit.Recorder
	dispatcher Dispatcher
	clock      func() time.Time
	newID      func() (string, error)
}

// NewService constructs support domain use-cases.
func NewService(store Store, recorder *audit.Recorder, dispatcher Dispatcher, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{
		store:      store,
		audit:      recorder,
		dispatcher: dispatcher,
		clock:      clock,
		newID:      newID,
	}
}

// CreateHint sends a hint to the target user.
//
// The actor must be support staff; the target must exist and have an OPEN
// support request. On success the hint is persisted UNREAD, an audit event
// is recorded, and a real-time notification is dispatched to the target.
func (s *Service) CreateHint(ctx context.Context, actor Actor, input CreateHintInput) (Hint, error) {
	if s == nil || s.store == nil {
		return Hint{}, ErrStoreNotConfigured
	}
	if !Allow(actor, OperationSendHint, input.TargetUserID) {
		return Hint{}, apperrors.New(apperrors.CodeAccessDenied, "sending hints requires support staff access")
	}

	targetUserID := strings.TrimSpace(input.TargetUserID)
	if targetUserID == "" {
		return Hint{}, apperrors.New(apperrors.CodeHintTargetRequired, "target user id is required")
	}
	stepID := strings.TrimSpace(input.StepID)
	if stepID == "" {
		return Hint{}, apperrors.New(apperrors.CodeHintStepEmpty, "step id is required")
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return Hint{}, apperrors.New(apperrors.CodeHintMessageEmpty, "hint message is required")
	}

	if _, err := s.store.FindUser(ctx, targetUserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Hint{}, apperrors.New(apperrors.CodeNotFound, "target user not found")
		}
		return Hint{}, err
	}

	request, err := s.store.FindOpenSupportRequest(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Hint{}, apperrors.WithMetadata(
				apperrors.CodeNoOpenSupportRequest,
				"no active support request",
				map[string]string{"UserID": targetUserID},
			)
		}
		return Hint{}, err
	}

	hintID, err := s.newID()
	if err != nil {
		return Hint{}, err
	}
	now := s.nowUTC()
	hint := Hint{
		ID:               hintID,
		UserID:           targetUserID,
		SupportRequestID: request.ID,
		StepID:           stepID,
		PuzzleID:         strings.TrimSpace(input.PuzzleID),
		Message:          message,
		SentByID:         actor.ID,
		SentByRole:       actor.Role,
		Status:           HintStatusUnread,
		CreatedAt:        now,
	}
	if err := s.store.CreateHint(ctx, hint); err != nil {
		return Hint{}, err
	}

	s.audit.Record(ctx, audit.Event{
		ActorID:      actor.ID,
		ActorRole:    string(actor.Role),
		Action:       audit.ActionSendHint,
		TargetUserID: targetUserID,
		Metadata: map[string]string{
			"hintId":           hint.ID,
			"supportRequestId": request.ID,
			"stepId":           stepID,
			"puzzleId":         hint.PuzzleID,
		},
		Timestamp: now,
	})

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(targetUserID, realtime.Payload{
			Type:     realtime.PayloadTypeHint,
			HintID:   hint.ID,
			Message:  message,
			StepID:   stepID,
			PuzzleID: hint.PuzzleID,
			SentAt:   now,
		})
	}

	return hint, nil
}

// ListHints lists hints for the resolved target, newest first.
//
// Support staff must name a target; a plain user is always self-scoped, and
// any requested target id is ignored rather than rejected.
func (s *Service) ListHints(ctx context.Context, actor Actor, requestedTargetUserID string) (HintList, error) {
	if s == nil || s.store == nil {
		return HintList{}, ErrStoreNotConfigured
	}
	if !Allow(actor, OperationListOwnHints, requestedTargetUserID) {
		return HintList{}, apperrors.New(apperrors.CodeAccessDenied, "listing hints is not permitted for this role")
	}

	target := actor.ID
	if actor.isSupportStaff() {
		target = strings.TrimSpace(requestedTargetUserID)
		if target == "" {
			return HintList{}, apperrors.New(apperrors.CodeHintTargetRequired, "target user id is required")
		}
	}

	hints, err := s.store.FindHintsByUser(ctx, target)
	if err != nil {
		return HintList{}, err
	}

	s.audit.Record(ctx, audit.Event{
		ActorID:      actor.ID,
		ActorRole:    string(actor.Role),
		Action:       audit.ActionViewHintList,
		TargetUserID: target,
		Timestamp:    s.nowUTC(),
	})

	list := HintList{Hints: hints}
	for _, hint := range hints {
		if hint.Status == HintStatusUnread {
			list.UnreadCount++
		}
	}
	return list, nil
}

// MarkViewed marks one hint as viewed by its subject user or an admin.
//
// The transition is not idempotent on purpose: a repeat call re-stamps
// ViewedAt with the current time, so the field records the last viewed time.
func (s *Service) MarkViewed(ctx context.Context, actor Actor, hintID string) (Hint, error) {
	if s == nil || s.store == nil {
		return Hint{}, ErrStoreNotConfigured
	}
	if !Allow(actor, OperationMarkViewed, "") {
		return Hint{}, apperrors.New(apperrors.CodeHintAccessDenied, "marking hints viewed is not permitted for this role")
	}

	hintID = strings.TrimSpace(hintID)
	if hintID == "" {
		return Hint{}, apperrors.New(apperrors.CodeNotFound, "hint not found")
	}

	hint, err := s.store.FindHint(ctx, hintID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Hint{}, apperrors.New(apperrors.CodeNotFound, "hint not found")
		}
		return Hint{}, err
	}

	if actor.Role != RoleAdmin && actor.ID != hint.UserID {
		return Hint{}, apperrors.New(apperrors.CodeHintAccessDenied, "only the hint's recipient may mark it viewed")
	}

	viewedAt := s.nowUTC()
	updated, err := s.store.UpdateHintStatus(ctx, hintID, HintStatusViewed, viewedAt)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Hint{}, apperrors.New(apperrors.CodeNotFound, "hint not found")
		}
		return Hint{}, err
	}

	s.audit.Record(ctx, audit.Event{
		ActorID:      actor.ID,
		ActorRole:    string(actor.Role),
		Action:       audit.ActionViewHint,
		TargetUserID: hint.UserID,
		Metadata: map[string]string{
			"hintId":   hintID,
			"viewedAt": viewedAt.Format(time.RFC3339),
		},
		Timestamp: viewedAt,
	})

	return updated, nil
}

// ViewProgress returns the progress log summary for one user.
//
// The actor must be support staff, the target must exist, and the target
// must have an OPEN support request. StuckStepOrPuzzle is the most recently
// updated entry whose status is STUCK, or nil when the user is not stuck.
func (s *Service) ViewProgress(ctx context.Context, actor Actor, targetUserID string) (ProgressView, error) {
	if s == nil || s.store == nil {
		return ProgressView{}, ErrStoreNotConfigured
	}
	if !Allow(actor, OperationViewProgress, targetUserID) {
		return ProgressView{}, apperrors.New(apperrors.CodeAccessDenied, "viewing progress requires support staff access")
	}

	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return ProgressView{}, apperrors.New(apperrors.CodeNotFound, "target user not found")
	}

	user, err := s.store.FindUser(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProgressView{}, apperrors.New(apperrors.CodeNotFound, "target user not found")
		}
		return ProgressView{}, err
	}

	request, err := s.store.FindOpenSupportRequest(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProgressView{}, apperrors.WithMetadata(
				apperrors.CodeNoOpenSupportRequest,
				"no active support request",
				map[string]string{"UserID": targetUserID},
			)
		}
		return ProgressView{}, err
	}

	logs, err := s.store.FindProgressLogs(ctx, targetUserID)
	if err != nil {
		return ProgressView{}, err
	}

	view := ProgressView{
		User:           user,
		SupportRequest: request,
		ProgressLogs:   logs,
	}
	for i := range logs {
		if logs[i].Status == ProgressStatusStuck {
			view.StuckStepOrPuzzle = &logs[i]
			break
		}
	}

	viewedAt := s.nowUTC()
	s.audit.Record(ctx, audit.Event{
		ActorID:      actor.ID,
		ActorRole:    string(actor.Role),
		Action:       audit.ActionViewUserProgress,
		TargetUserID: targetUserID,
		Metadata: map[string]string{
			"supportRequestId": request.ID,
			"viewedAt":         viewedAt.Format(time.RFC3339),
		},
		Timestamp: viewedAt,
	})

	return view, nil
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
