package attendancehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrsync/internal/domain/attendance"
	"hrsync/internal/domain/audit"
	"hrsync/internal/domain/query"
	"hrsync/internal/domain/reconcile"
	"hrsync/internal/transport/http/api"
	"hrsync/internal/transport/http/middleware"
	"hrsync/internal/transport/http/shared"
)

type Pages interface {
	EnrichedPage(ctx context.Context, filter attendance.Filter, page, pageSize int) (query.EnrichedPage, error)
}

type Engine interface {
	ClearAll(ctx context.Context, filter attendance.Filter) (reconcile.ClearResult, error)
	Status() reconcile.Status
}

// Syncer runs a manual cycle and records it as a job run.
type Syncer interface {
	SyncAttendancesNow(ctx context.Context) reconcile.SyncResult
}

type Handler struct {
	Pages        Pages
	Engine       Engine
	Syncer       Syncer
	Audit        audit.Recorder
	DefaultLimit int
	MaxLimit     int
	// Location reads offset-less filter times in the device's zone.
	Location *time.Location
}

func NewHandler(pages Pages, engine Engine, syncer Syncer, recorder audit.Recorder, defaultLimit, maxLimit int, loc *time.Location) *Handler {
	return &Handler{
		Pages:        pages,
		Engine:       engine,
		Syncer:       syncer,
		Audit:        recorder,
		DefaultLimit: defaultLimit,
		MaxLimit:     maxLimit,
		Location:     loc,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendances", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Delete("/", h.handleClear)
		r.Delete("/all", h.handleClear)
		r.Post("/sync", h.handleSync)
		r.Get("/sync/status", h.handleStatus)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	page, limit := shared.ParsePage(r, v, h.DefaultLimit, h.MaxLimit)
	filter := shared.ParseAttendanceFilter(r, v, h.Location)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Pages.EnrichedPage(r.Context(), filter, page, limit)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	result := h.Syncer.SyncAttendancesNow(context.WithoutCancel(r.Context()))

	switch {
	case result.Skipped:
		api.Accepted(w, result, reqID)
	case result.OK:
		h.record(r, audit.ActionAttendanceSync, nil, result)
		api.Success(w, result, reqID)
	case errors.Is(result.Err(), attendance.ErrStoreFailure):
		api.FailWithDetails(w, http.StatusInternalServerError, "store_failure", "attendances could not be saved", result, reqID)
	default:
		api.FailWithDetails(w, http.StatusServiceUnavailable, "remote_unavailable", "attendance device is unreachable", result, reqID)
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Engine.Status(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	filter := shared.ParseAttendanceFilter(r, v, h.Location)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Engine.ClearAll(r.Context(), filter)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	h.record(r, audit.ActionAttendanceClear, filter.Params(), result)
	api.Success(w, result, reqID)
}

func (h *Handler) record(r *http.Request, action string, before, after any) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(r.Context(), action, "attendance", "", middleware.GetRequestID(r.Context()), middleware.ClientIP(r), before, after)
	if err != nil {
		slog.Warn("audit log failed", "action", action, "err", err)
	}
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, attendance.ErrInvalidPage):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "page", Reason: "page and limit must be positive"}})
	case errors.Is(err, attendance.ErrStoreFailure):
		slog.Error("attendance store failure", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "store_failure", "attendance store is unavailable", reqID)
	default:
		slog.Error("attendance request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "unexpected error", reqID)
	}
}
