// Package web exposes the dashboard core as a JSON API for a presentation
// layer.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/livinlefevreloca/queuedash/internal/dispatch"
	"github.com/livinlefevreloca/queuedash/internal/journal"
	"github.com/livinlefevreloca/queuedash/internal/logviewer"
	"github.com/livinlefevreloca/queuedash/internal/notify"
	"github.com/livinlefevreloca/queuedash/internal/present"
	"github.com/livinlefevreloca/queuedash/internal/snapshot"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Notifications is the consuming side of the notification queue
type Notifications interface {
	Drain() []notify.Notification
}

// Refresher starts a background synchronisation cycle
type Refresher interface {
	RefreshAsync(ctx context.Context)
}

// History is the read side of the action journal
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	ForJob(ctx context.Context, jobID string, limit int) ([]journal.Entry, error)
}

// Handler serves the operator API
type Handler struct {
	store        *snapshot.Store
	refresher    Refresher
	dispatcher   *dispatch.Dispatcher
	notes        Notifications
	history      History
	confirmParam string
	logger       *slog.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithHistory enables GET /api/history
func WithHistory(h History) Option {
	return func(handler *Handler) { handler.history = h }
}

// WithConfirmParam sets the query parameter that confirms a delete
func WithConfirmParam(name string) Option {
	return func(handler *Handler) { handler.confirmParam = name }
}

// NewHandler creates a new API handler
func NewHandler(
	store *snapshot.Store,
	refresher Refresher,
	dispatcher *dispatch.Dispatcher,
	notes Notifications,
	logger *slog.Logger,
	opts ...Option,
) *Handler {
	h := &Handler{
		store:        store,
		refresher:    refresher,
		dispatcher:   dispatcher,
		notes:        notes,
		confirmParam: "confirm",
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StatusResponse is the body of GET /api/status once status was fetched
type StatusResponse struct {
	present.StatusPanel
	Jobs      json.RawMessage `json:"jobs,omitempty"`
	Version   uint64          `json:"version"`
	FetchedAt time.Time       `json:"fetched_at"`
	LastError string          `json:"last_error,omitempty"`
}

// ListResponse is the body of GET /api/jobs and GET /api/dlq
type ListResponse struct {
	Visible   bool          `json:"visible"`
	Rows      []present.Row `json:"rows"`
	Version   uint64        `json:"version"`
	FetchedAt *time.Time    `json:"fetched_at,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// GetStatus handles GET /api/status
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	status, meta := h.store.Status()
	if !meta.Fetched() {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		StatusPanel: present.Status(status, true),
		Jobs:        status.Jobs,
		Version:     meta.Version,
		FetchedAt:   meta.FetchedAt,
		LastError:   meta.LastError,
	})
}

// ListJobs handles GET /api/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs, meta := h.store.Jobs()
	writeJSON(w, http.StatusOK, listResponse(present.Rows(present.ListMain, jobs), meta))
}

// ListDLQ handles GET /api/dlq
func (h *Handler) ListDLQ(w http.ResponseWriter, _ *http.Request) {
	entries, meta := h.store.Dlq()
	writeJSON(w, http.StatusOK, listResponse(present.Rows(present.ListDLQ, entries), meta))
}

// Refresh handles POST /api/refresh. The cycle runs in the background.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.refresher.RefreshAsync(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

// RetryJob handles POST /api/dlq/{id}/retry
func (h *Handler) RetryJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	result, err := h.dispatcher.Retry(r.Context(), jobID)
	writeResult(w, result, err)
}

// DeleteJob handles DELETE /api/jobs/{id}. The operator's confirmation is
// carried by the confirm query parameter; anything but a true value declines.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get(h.confirmParam))

	result, err := h.dispatcher.Delete(r.Context(), jobID, dispatch.Confirmed(confirmed))
	writeResult(w, result, err)
}

// ViewLog handles POST /api/jobs/{id}/log
func (h *Handler) ViewLog(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	view, err := h.dispatcher.ViewLog(r.Context(), jobID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, view)
	case errors.Is(err, dispatch.ErrEmptyJobID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, logviewer.ErrSuperseded):
		writeJSON(w, http.StatusConflict, view)
	default:
		writeJSON(w, http.StatusBadGateway, view)
	}
}

// GetLog handles GET /api/log
func (h *Handler) GetLog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.dispatcher.Log())
}

// CloseLog handles DELETE /api/log
func (h *Handler) CloseLog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.dispatcher.CloseLog())
}

// DrainNotifications handles GET /api/notifications. Reading acknowledges.
func (h *Handler) DrainNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": h.notes.Drain(),
	})
}

// GetHistory handles GET /api/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "journal is disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	var (
		entries []journal.Entry
		err     error
	)
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		entries, err = h.history.ForJob(r.Context(), jobID, limit)
	} else {
		entries, err = h.history.Recent(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("failed to read history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func listResponse(section present.Section, meta snapshot.Meta) ListResponse {
	resp := ListResponse{
		Visible:   section.Visible,
		Rows:      section.Rows,
		Version:   meta.Version,
		LastError: meta.LastError,
	}
	if meta.Fetched() {
		fetchedAt := meta.FetchedAt
		resp.FetchedAt = &fetchedAt
	}
	return resp
}

func writeResult(w http.ResponseWriter, result dispatch.Result, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, dispatch.ErrEmptyJobID):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusBadGateway, result)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
