// Package sqlite provides SQLite-backed persistence for support state.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/emberworks/questline/internal/platform/storage/sqlitemigrate"
	"github.com/emberworks/questline/internal/services/support/storage"
	"github.com/emberworks/questline/internal/services/support/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for support records.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a support SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite db is required")
	}
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

// PutUser upserts one user row.
func (s *Store) PutUser(ctx context.Context, record storage.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	record.DisplayName = strings.TrimSpace(record.DisplayName)
	if record.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO users (id, display_name, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		display_name = excluded.display_name,
		created_at = excluded.created_at
	`, record.ID, record.DisplayName, toMillis(record.CreatedAt))
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser loads one user row by id.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserRecord{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.UserRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, display_name, created_at
FROM users
WHERE id = ?
`, userID)
	var record storage.UserRecord
	var createdAt int64
	if err := row.Scan(&record.ID, &record.DisplayName, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserRecord{}, storage.ErrNotFound
		}
		return storage.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// PutSupportRequest upserts one support request row.
func (s *Store) PutSupportRequest(ctx context.Context, record storage.SupportRequestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.Status = strings.TrimSpace(record.Status)
	if record.ID == "" {
		return fmt.Errorf("support request id is required")
	}
	if record.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if record.Status == "" {
		return fmt.Errorf("status is required")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO support_requests (id, user_id, status, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		status = excluded.status,
		created_at = excluded.created_at
	`, record.ID, record.UserID, record.Status, toMillis(record.CreatedAt))
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put support request: %w", err)
	}
	return nil
}

// GetOpenSupportRequest loads the oldest OPEN support request for a user.
func (s *Store) GetOpenSupportRequest(ctx context.Context, userID string) (storage.SupportRequestRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SupportRequestRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SupportRequestRecord{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.SupportRequestRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, status, created_at
FROM support_requests
WHERE user_id = ? AND status = 'OPEN'
ORDER BY created_at ASC, id ASC
LIMIT 1
`, userID)
	var record storage.SupportRequestRecord
	var createdAt int64
	if err := row.Scan(&record.ID, &record.UserID, &record.Status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SupportRequestRecord{}, storage.ErrNotFound
		}
		return storage.SupportRequestRecord{}, fmt.Errorf("get open support request: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// PutProgressLog upserts one progress log row.
func (s *Store) PutProgressLog(ctx context.Context, record storage.ProgressLogRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.StepID = strings.TrimSpace(record.StepID)
	record.PuzzleID = strings.TrimSpace(record.PuzzleID)
	record.Status = strings.TrimSpace(record.Status)
	if record.ID == "" {
		return fmt.Errorf("progress log id is required")
	}
	if record.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if record.StepID == "" {
		return fmt.Errorf("step id is required")
	}
	if record.Status == "" {
		return fmt.Errorf("status is required")
	}
	if record.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO progress_logs (id, user_id, step_id, puzzle_id, status, details, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		step_id = excluded.step_id,
		puzzle_id = excluded.puzzle_id,
		status = excluded.status,
		details = excluded.details,
		updated_at = excluded.updated_at
	`, record.ID, record.UserID, record.StepID, record.PuzzleID, record.Status, record.Details, toMillis(record.UpdatedAt))
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put progress log: %w", err)
	}
	return nil
}

// ListProgressLogsByUser lists one user's progress logs newest-first.
func (s *Store) ListProgressLogsByUser(ctx context.Context, userID string) ([]storage.ProgressLogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, user_id, step_id, puzzle_id, status, details, updated_at
FROM progress_logs
WHERE user_id = ?
ORDER BY updated_at DESC, id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress logs: %w", err)
	}
	defer rows.Close()

	var results []storage.ProgressLogRecord
	for rows.Next() {
		var record storage.ProgressLogRecord
		var updatedAt int64
		if err := rows.Scan(&record.ID, &record.UserID, &record.StepID, &record.PuzzleID, &record.Status, &record.Details, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan progress log row: %w", err)
		}
		record.UpdatedAt = fromMillis(updatedAt)
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress log rows: %w", err)
	}
	return results, nil
}

// PutHint persists one hint row.
func (s *Store) PutHint(ctx context.Context, record storage.HintRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeHintRecord(record)
	if err != nil {
		return err
	}

	var viewedAt sql.NullInt64
	if normalized.ViewedAt != nil {
		viewedAt = sql.NullInt64{Int64: toMillis(*normalized.ViewedAt), Valid: true}
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO hints (
		id, user_id, support_request_id, step_id, puzzle_id, message,
		sent_by_id, sent_by_role, status, created_at, viewed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		support_request_id = excluded.support_request_id,
		step_id = excluded.step_id,
		puzzle_id = excluded.puzzle_id,
		message = excluded.message,
		sent_by_id = excluded.sent_by_id,
		sent_by_role = excluded.sent_by_role,
		status = excluded.status,
		created_at = excluded.created_at,
		viewed_at = excluded.viewed_at
	`,
		normalized.ID,
		normalized.UserID,
		normalized.SupportRequestID,
		normalized.StepID,
		normalized.PuzzleID,
		normalized.Message,
		normalized.SentByID,
		normalized.SentByRole,
		normalized.Status,
		toMillis(normalized.CreatedAt),
		viewedAt,
	)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put hint: %w", err)
	}
	return nil
}

// GetHint loads one hint row by id.
func (s *Store) GetHint(ctx context.Context, hintID string) (storage.HintRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.HintRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.HintRecord{}, fmt.Errorf("storage is not configured")
	}
	hintID = strings.TrimSpace(hintID)
	if hintID == "" {
		return storage.HintRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, support_request_id, step_id, puzzle_id, message,
       sent_by_id, sent_by_role, status, created_at, viewed_at
FROM hints
WHERE id = ?
`, hintID)
	record, err := scanHint(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.HintRecord{}, storage.ErrNotFound
		}
		return storage.HintRecord{}, fmt.Errorf("get hint: %w", err)
	}
	return record, nil
}

// ListHintsByUser lists one user's hints newest-first.
func (s *Store) ListHintsByUser(ctx context.Context, userID string) ([]storage.HintRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, user_id, support_request_id, step_id, puzzle_id, message,
       sent_by_id, sent_by_role, status, created_at, viewed_at
FROM hints
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list hints: %w", err)
	}
	defer rows.Close()

	var results []storage.HintRecord
	for rows.Next() {
		record, scanErr := scanHint(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan hint row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hint rows: %w", err)
	}
	return results, nil
}

// UpdateHintStatus updates one hint's status and viewed timestamp.
func (s *Store) UpdateHintStatus(ctx context.Context, hintID string, status string, viewedAt time.Time) (storage.HintRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.HintRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.HintRecord{}, fmt.Errorf("storage is not configured")
	}
	hintID = strings.TrimSpace(hintID)
	status = strings.TrimSpace(status)
	if hintID == "" {
		return storage.HintRecord{}, storage.ErrNotFound
	}
	if status == "" {
		return storage.HintRecord{}, fmt.Errorf("status is required")
	}
	if viewedAt.IsZero() {
		return storage.HintRecord{}, fmt.Errorf("viewed_at is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE hints
SET status = ?, viewed_at = ?
WHERE id = ?
`, status, toMillis(viewedAt), hintID)
	if err != nil {
		return storage.HintRecord{}, fmt.Errorf("update hint status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.HintRecord{}, fmt.Errorf("update hint status rows affected: %w", err)
	}
	if affected == 0 {
		return storage.HintRecord{}, storage.ErrNotFound
	}
	return s.GetHint(ctx, hintID)
}

// AppendAuditEvent appends one immutable audit trail row.
func (s *Store) AppendAuditEvent(ctx context.Context, record storage.AuditEventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ActorID = strings.TrimSpace(record.ActorID)
	record.Action = strings.TrimSpace(record.Action)
	if record.Action == "" {
		return fmt.Errorf("action is required")
	}
	if record.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	metadataJSON := strings.TrimSpace(record.MetadataJSON)
	if metadataJSON == "" {
		metadataJSON = "{}"
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO audit_events (actor_id, actor_role, action, target_user_id, metadata_json, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.ActorID,
		record.ActorRole,
		record.Action,
		record.TargetUserID,
		metadataJSON,
		toMillis(record.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListAuditEvents lists the newest audit rows up to limit.
func (s *Store) ListAuditEvents(ctx context.Context, limit int) ([]storage.AuditEventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, actor_id, actor_role, action, target_user_id, metadata_json, timestamp
FROM audit_events
ORDER BY timestamp DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var results []storage.AuditEventRecord
	for rows.Next() {
		var record storage.AuditEventRecord
		var timestamp int64
		if err := rows.Scan(&record.ID, &record.ActorID, &record.ActorRole, &record.Action, &record.TargetUserID, &record.MetadataJSON, &timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event row: %w", err)
		}
		record.Timestamp = fromMillis(timestamp)
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit event rows: %w", err)
	}
	return results, nil
}

type scanner func(dest ...any) error

func normalizeHintRecord(record storage.HintRecord) (storage.HintRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.SupportRequestID = strings.TrimSpace(record.SupportRequestID)
	record.StepID = strings.TrimSpace(record.StepID)
	record.PuzzleID = strings.TrimSpace(record.PuzzleID)
	record.Message = strings.TrimSpace(record.Message)
	record.SentByID = strings.TrimSpace(record.SentByID)
	record.SentByRole = strings.TrimSpace(record.SentByRole)
	record.Status = strings.TrimSpace(record.Status)
	if record.ID == "" {
		return storage.HintRecord{}, fmt.Errorf("hint id is required")
	}
	if record.UserID == "" {
		return storage.HintRecord{}, fmt.Errorf("user id is required")
	}
	if record.SupportRequestID == "" {
		return storage.HintRecord{}, fmt.Errorf("support request id is required")
	}
	if record.StepID == "" {
		return storage.HintRecord{}, fmt.Errorf("step id is required")
	}
	if record.Message == "" {
		return storage.HintRecord{}, fmt.Errorf("message is required")
	}
	if record.Status == "" {
		return storage.HintRecord{}, fmt.Errorf("status is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.HintRecord{}, fmt.Errorf("created_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	if record.ViewedAt != nil {
		viewedAt := record.ViewedAt.UTC()
		record.ViewedAt = &viewedAt
	}
	return record, nil
}

func scanHint(scan scanner) (storage.HintRecord, error) {
	var record storage.HintRecord
	var createdAt int64
	var viewedAt sql.NullInt64
	if err := scan(
		&record.ID,
		&record.UserID,
		&record.SupportRequestID,
		&record.StepID,
		&record.PuzzleID,
		&record.Message,
		&record.SentByID,
		&record.SentByRole,
		&record.Status,
		&createdAt,
		&viewedAt,
	); err != nil {
		return storage.HintRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	if viewedAt.Valid {
		value := fromMillis(viewedAt.Int64)
		record.ViewedAt = &value
	}
	return record, nil
}

func isForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "foreign key constraint failed")
}
