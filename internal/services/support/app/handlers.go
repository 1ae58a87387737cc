package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emberworks/questline/internal/auth/token"
	apperrors "github.com/emberworks/questline/internal/errors"
	"github.com/emberworks/questline/internal/services/support/domain"
	"github.com/emberworks/questline/internal/services/support/realtime"
	"github.com/emberworks/questline/internal/services/support/storage"
)

const (
	tokenCookieName = "ql_token"

	maxRequestBodyBytes   = 64 * 1024
	defaultAuditPageLimit = 100
	maxAuditPageLimit     = 500
)

type handler struct {
	service    *domain.Service
	auditStore storage.AuditStore
	hub        *realtime.Hub
	tokenCfg   token.Config
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type hintPayload struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	SupportRequestID string `json:"support_request_id"`
	StepID           string `json:"step_id"`
	PuzzleID         string `json:"puzzle_id,omitempty"`
	Message          string `json:"message"`
	SentByID         string `json:"sent_by_id"`
	SentByRole       string `json:"sent_by_role"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	ViewedAt         string `json:"viewed_at,omitempty"`
}

type hintEnvelope struct {
	Hint hintPayload `json:"hint"`
}

type hintListEnvelope struct {
	Hints       []hintPayload `json:"hints"`
	UnreadCount int           `json:"unread_count"`
}

type createHintRequest struct {
	TargetUserID string `json:"target_user_id"`
	StepID       string `json:"step_id"`
	PuzzleID     string `json:"puzzle_id"`
	Message      string `json:"message"`
}

type progressLogPayload struct {
	ID        string `json:"id"`
	StepID    string `json:"step_id"`
	PuzzleID  string `json:"puzzle_id,omitempty"`
	Status    string `json:"status"`
	Details   string `json:"details,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

type progressEnvelope struct {
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"user"`
	SupportRequest struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	} `json:"support_request"`
	ProgressLogs []progressLogPayload `json:"progress_logs"`
	StuckEntry   *progressLogPayload  `json:"stuck_entry,omitempty"`
}

type auditEventPayload struct {
	ID           int64             `json:"id"`
	ActorID      string            `json:"actor_id"`
	ActorRole    string            `json:"actor_role"`
	Action       string            `json:"action"`
	TargetUserID string            `json:"target_user_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Timestamp    string            `json:"timestamp"`
}

type auditListEnvelope struct {
	Events []auditEventPayload `json:"events"`
}

func newHandler(h *handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc(http.MethodGet+" /api/users/{userID}/progress", h.requireActor(h.handleViewProgress))
	mux.HandleFunc(http.MethodPost+" /api/hints", h.requireActor(h.handleCreateHint))
	mux.HandleFunc(http.MethodGet+" /api/hints", h.requireActor(h.handleListHints))
	mux.HandleFunc(http.MethodPost+" /api/hints/{hintID}/viewed", h.requireActor(h.handleMarkViewed))
	mux.HandleFunc(http.MethodGet+" /api/audit", h.requireActor(h.handleListAuditEvents))
	mux.HandleFunc(http.MethodGet+" /ws", h.handleWS)

	return mux
}

// requireActor resolves the access token into a domain actor before the
// wrapped handler runs. Requests without a valid token never reach handlers.
func (h *handler) requireActor(next func(http.ResponseWriter, *http.Request, domain.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := h.actorFromRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, actor)
	}
}

func (h *handler) actorFromRequest(r *http.Request) (domain.Actor, error) {
	accessToken := accessTokenFromRequest(r)
	if accessToken == "" {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	claims, err := token.Verify(accessToken, h.tokenCfg)
	if err != nil {
		return domain.Actor{}, err
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "token role is not recognized")
	}
	return domain.Actor{ID: claims.UserID, Role: role}, nil
}

func accessTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if rest, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		if value := strings.TrimSpace(rest); value != "" {
			return value
		}
	}
	cookie, err := r.Cookie(tokenCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func (h *handler) handleViewProgress(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	targetUserID := strings.TrimSpace(r.PathValue("userID"))
	view, err := h.service.ViewProgress(r.Context(), actor, targetUserID)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload progressEnvelope
	payload.User.ID = view.User.ID
	payload.User.DisplayName = view.User.DisplayName
	payload.SupportRequest.ID = view.SupportRequest.ID
	payload.SupportRequest.Status = string(view.SupportRequest.Status)
	payload.SupportRequest.CreatedAt = view.SupportRequest.CreatedAt.Format(time.RFC3339)
	payload.ProgressLogs = make([]progressLogPayload, 0, len(view.ProgressLogs))
	for _, entry := range view.ProgressLogs {
		payload.ProgressLogs = append(payload.ProgressLogs, toProgressLogPayload(entry))
	}
	if view.StuckStepOrPuzzle != nil {
		stuck := toProgressLogPayload(*view.StuckStepOrPuzzle)
		payload.StuckEntry = &stuck
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *handler) handleCreateHint(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var request createHintRequest
	if err := decodeJSONBody(w, r, &request); err != nil {
		writeError(w, err)
		return
	}

	hint, err := h.service.CreateHint(r.Context(), actor, domain.CreateHintInput{
		TargetUserID: request.TargetUserID,
		StepID:       request.StepID,
		PuzzleID:     request.PuzzleID,
		Message:      request.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, hintEnvelope{Hint: toHintPayload(hint)})
}

func (h *handler) handleListHints(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	requestedTarget := strings.TrimSpace(r.URL.Query().Get("user_id"))
	list, err := h.service.ListHints(r.Context(), actor, requestedTarget)
	if err != nil {
		writeError(w, err)
		return
	}

	payload := hintListEnvelope{
		Hints:       make([]hintPayload, 0, len(list.Hints)),
		UnreadCount: list.UnreadCount,
	}
	for _, hint := range list.Hints {
		payload.Hints = append(payload.Hints, toHintPayload(hint))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *handler) handleMarkViewed(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	hintID := strings.TrimSpace(r.PathValue("hintID"))
	hint, err := h.service.MarkViewed(r.Context(), actor, hintID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hintEnvelope{Hint: toHintPayload(hint)})
}

func (h *handler) handleListAuditEvents(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	if actor.Role != domain.RoleAdmin {
		writeError(w, apperrors.New(apperrors.CodeAccessDenied, "audit trail access requires admin role"))
		return
	}
	if h.auditStore == nil {
		writeError(w, apperrors.New(apperrors.CodeUnknown, "audit store is not configured"))
		return
	}

	limit := defaultAuditPageLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxAuditPageLimit {
		limit = maxAuditPageLimit
	}

	records, err := h.auditStore.ListAuditEvents(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	payload := auditListEnvelope{Events: make([]auditEventPayload, 0, len(records))}
	for _, record := range records {
		event := auditEventPayload{
			ID:           record.ID,
			ActorID:      record.ActorID,
			ActorRole:    record.ActorRole,
			Action:       record.Action,
			TargetUserID: record.TargetUserID,
			Timestamp:    record.Timestamp.Format(time.RFC3339),
		}
		if trimmed := strings.TrimSpace(record.MetadataJSON); trimmed != "" && trimmed != "{}" {
			metadata := map[string]string{}
			if err := json.Unmarshal([]byte(trimmed), &metadata); err == nil {
				event.Metadata = metadata
			}
		}
		payload.Events = append(payload.Events, event)
	}
	writeJSON(w, http.StatusOK, payload)
}

func toHintPayload(hint domain.Hint) hintPayload {
	payload := hintPayload{
		ID:               hint.ID,
		UserID:           hint.UserID,
		SupportRequestID: hint.SupportRequestID,
		StepID:           hint.StepID,
		PuzzleID:         hint.PuzzleID,
		Message:          hint.Message,
		SentByID:         hint.SentByID,
		SentByRole:       string(hint.SentByRole),
		Status:           string(hint.Status),
		CreatedAt:        hint.CreatedAt.Format(time.RFC3339),
	}
	if hint.ViewedAt != nil {
		payload.ViewedAt = hint.ViewedAt.Format(time.RFC3339)
	}
	return payload
}

func toProgressLogPayload(entry domain.ProgressLog) progressLogPayload {
	return progressLogPayload{
		ID:        entry.ID,
		StepID:    entry.StepID,
		PuzzleID:  entry.PuzzleID,
		Status:    string(entry.Status),
		Details:   entry.Details,
		UpdatedAt: entry.UpdatedAt.Format(time.RFC3339),
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "request body is not valid JSON", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("support: write json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()
	message := "internal error"
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if errors.Is(err, domain.ErrNotFound) {
		code = apperrors.CodeNotFound
		status = code.HTTPStatus()
		message = "record not found"
	}
	if status >= http.StatusInternalServerError {
		log.Printf("support: request failed: %v", err)
	}
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: string(code), Message: message}})
}
