package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emberworks/questline/internal/services/support/audit"
	"github.com/emberworks/questline/internal/services/support/domain"
)

func TestDomainStoreAdapterMapsNotFound(t *testing.T) {
	t.Parallel()

	adapter := newDomainStoreAdapter(newMemoryStore())

	if _, err := adapter.FindUser(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("find user: expected domain.ErrNotFound, got %v", err)
	}
	if _, err := adapter.FindHint(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("find hint: expected domain.ErrNotFound, got %v", err)
	}
	if _, err := adapter.FindOpenSupportRequest(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("find open request: expected domain.ErrNotFound, got %v", err)
	}
}

func TestDomainStoreAdapterNilStore(t *testing.T) {
	t.Parallel()

	adapter := newDomainStoreAdapter(nil)
	if _, err := adapter.FindUser(context.Background(), "user-1"); !errors.Is(err, domain.ErrStoreNotConfigured) {
		t.Fatalf("expected store not configured, got %v", err)
	}
}

func TestDomainStoreAdapterHintRoundTrip(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	adapter := newDomainStoreAdapter(store)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	hint := domain.Hint{
		ID:               "hint-1",
		UserID:           "user-1",
		SupportRequestID: "req-1",
		StepID:           "step-1",
		PuzzleID:         "puzzle-2",
		Message:          "check the chest",
		SentByID:         "spec-1",
		SentByRole:       domain.RoleSupportSpecialist,
		Status:           domain.HintStatusUnread,
		CreatedAt:        now,
	}
	if err := adapter.CreateHint(context.Background(), hint); err != nil {
		t.Fatalf("create hint: %v", err)
	}

	got, err := adapter.FindHint(context.Background(), "hint-1")
	if err != nil {
		t.Fatalf("find hint: %v", err)
	}
	if got != hint {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, hint)
	}

	viewedAt := now.Add(time.Minute)
	updated, err := adapter.UpdateHintStatus(context.Background(), "hint-1", domain.HintStatusViewed, viewedAt)
	if err != nil {
		t.Fatalf("update hint status: %v", err)
	}
	if updated.Status != domain.HintStatusViewed {
		t.Fatalf("status = %q, want VIEWED", updated.Status)
	}
	if updated.ViewedAt == nil || !updated.ViewedAt.Equal(viewedAt) {
		t.Fatalf("viewed at = %v, want %v", updated.ViewedAt, viewedAt)
	}
}

func TestAuditStoreAdapterEncodesMetadata(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	adapter := newAuditStoreAdapter(store)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if err := adapter.AppendAuditEvent(context.Background(), audit.Event{
		ActorID:      "spec-1",
		ActorRole:    "SUPPORT_SPECIALIST",
		Action:       audit.ActionSendHint,
		TargetUserID: "user-1",
		Metadata:     map[string]string{"hintId": "hint-1"},
		Timestamp:    now,
	}); err != nil {
		t.Fatalf("append audit event: %v", err)
	}

	events := store.auditEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].MetadataJSON != `{"hintId":"hint-1"}` {
		t.Fatalf("metadata json = %q", events[0].MetadataJSON)
	}
	if events[0].Action != "SEND_HINT" {
		t.Fatalf("action = %q", events[0].Action)
	}
}

func TestAuditStoreAdapterEmptyMetadata(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	adapter := newAuditStoreAdapter(store)

	if err := adapter.AppendAuditEvent(context.Background(), audit.Event{
		ActorID:   "admin-1",
		ActorRole: "ADMIN",
		Action:    audit.ActionViewHintList,
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("append audit event: %v", err)
	}
	events := store.auditEvents()
	if events[0].MetadataJSON != "{}" {
		t.Fatalf("metadata json = %q, want {}", events[0].MetadataJSON)
	}
}
