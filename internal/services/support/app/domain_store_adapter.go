package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emberworks/questline/internal/services/support/audit"
	"github.com/emberworks/questline/internal/services/support/domain"
	"github.com/emberworks/questline/internal/services/support/storage"
)

type domainStoreAdapter struct {
	supportStore storage.SupportStore
}

func newDomainStoreAdapter(supportStore storage.SupportStore) *domainStoreAdapter {
	return &domainStoreAdapter{supportStore: supportStore}
}

func (a *domainStoreAdapter) FindUser(ctx context.Context, userID string) (domain.User, error) {
	if a == nil || a.supportStore == nil {
		return domain.User{}, domain.ErrStoreNotConfigured
	}
	record, err := a.supportStore.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, mapStorageError(err)
	}
	return domain.User{
		ID:          record.ID,
		DisplayName: record.DisplayName,
		CreatedAt:   record.CreatedAt,
	}, nil
}

func (a *domainStoreAdapter) FindOpenSupportRequest(ctx context.Context, userID string) (domain.SupportRequest, error) {
	if a == nil || a.supportStore == nil {
		return domain.SupportRequest{}, domain.ErrStoreNotConfigured
	}
	record, err := a.supportStore.GetOpenSupportRequest(ctx, userID)
	if err != nil {
		return domain.SupportRequest{}, mapStorageError(err)
	}
	return domain.SupportRequest{
		ID:        record.ID,
		UserID:    record.UserID,
		Status:    domain.RequestStatus(record.Status),
		CreatedAt: record.CreatedAt,
	}, nil
}

func (a *domainStoreAdapter) CreateHint(ctx context.Context, hint domain.Hint) error {
	if a == nil || a.supportStore == nil {
		return domain.ErrStoreNotConfigured
	}
	if err := a.supportStore.PutHint(ctx, toStorageHint(hint)); err != nil {
		return mapStorageError(err)
	}
	return nil
}

func (a *domainStoreAdapter) FindHintsByUser(ctx context.Context, userID string) ([]domain.Hint, error) {
	if a == nil || a.supportStore == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.supportStore.ListHintsByUser(ctx, userID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	hints := make([]domain.Hint, 0, len(records))
	for _, record := range records {
		hints = append(hints, toDomainHint(record))
	}
	return hints, nil
}

func (a *domainStoreAdapter) FindHint(ctx context.Context, hintID string) (domain.Hint, error) {
	if a == nil || a.supportStore == nil {
		return domain.Hint{}, domain.ErrStoreNotConfigured
	}
	record, err := a.supportStore.GetHint(ctx, hintID)
	if err != nil {
		return domain.Hint{}, mapStorageError(err)
	}
	return toDomainHint(record), nil
}

func (a *domainStoreAdapter) UpdateHintStatus(ctx context.Context, hintID string, status domain.HintStatus, viewedAt time.Time) (domain.Hint, error) {
	if a == nil || a.supportStore == nil {
		return domain.Hint{}, domain.ErrStoreNotConfigured
	}
	record, err := a.supportStore.UpdateHintStatus(ctx, hintID, string(status), viewedAt)
	if err != nil {
		return domain.Hint{}, mapStorageError(err)
	}
	return toDomainHint(record), nil
}

func (a *domainStoreAdapter) FindProgressLogs(ctx context.Context, userID string) ([]domain.ProgressLog, error) {
	if a == nil || a.supportStore == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.supportStore.ListProgressLogsByUser(ctx, userID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	logs := make([]domain.ProgressLog, 0, len(records))
	for _, record := range records {
		logs = append(logs, domain.ProgressLog{
			ID:        record.ID,
			UserID:    record.UserID,
			StepID:    record.StepID,
			PuzzleID:  record.PuzzleID,
			Status:    domain.ProgressStatus(record.Status),
			Details:   record.Details,
			UpdatedAt: record.UpdatedAt,
		})
	}
	return logs, nil
}

type auditStoreAdapter struct {
	auditStore storage.AuditStore
}

func newAuditStoreAdapter(auditStore storage.AuditStore) *auditStoreAdapter {
	return &auditStoreAdapter{auditStore: auditStore}
}

func (a *auditStoreAdapter) AppendAuditEvent(ctx context.Context, event audit.Event) error {
	if a == nil || a.auditStore == nil {
		return domain.ErrStoreNotConfigured
	}
	metadataJSON := "{}"
	if len(event.Metadata) > 0 {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		metadataJSON = string(encoded)
	}
	return a.auditStore.AppendAuditEvent(ctx, storage.AuditEventRecord{
		ActorID:      event.ActorID,
		ActorRole:    event.ActorRole,
		Action:       string(event.Action),
		TargetUserID: event.TargetUserID,
		MetadataJSON: metadataJSON,
		Timestamp:    event.Timestamp,
	})
}

func toStorageHint(hint domain.Hint) storage.HintRecord {
	return storage.HintRecord{
		ID:               hint.ID,
		UserID:           hint.UserID,
		SupportRequestID: hint.SupportRequestID,
		StepID:           hint.StepID,
		PuzzleID:         hint.PuzzleID,
		Message:          hint.Message,
		SentByID:         hint.SentByID,
		SentByRole:       string(hint.SentByRole),
		Status:           string(hint.Status),
		CreatedAt:        hint.CreatedAt,
		ViewedAt:         hint.ViewedAt,
	}
}

func toDomainHint(record storage.HintRecord) domain.Hint {
	return domain.Hint{
		ID:               record.ID,
		UserID:           record.UserID,
		SupportRequestID: record.SupportRequestID,
		StepID:           record.StepID,
		PuzzleID:         record.PuzzleID,
		Message:          record.Message,
		SentByID:         record.SentByID,
		SentByRole:       domain.Role(record.SentByRole),
		Status:           domain.HintStatus(record.Status),
		CreatedAt:        record.CreatedAt,
		ViewedAt:         record.ViewedAt,
	}
}

func mapStorageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return domain.ErrNotFound
	}
	return err
}
