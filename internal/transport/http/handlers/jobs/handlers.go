package jobshandler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrsync/internal/platform/jobs"
	"hrsync/internal/transport/http/api"
	"hrsync/internal/transport/http/middleware"
	"hrsync/internal/transport/http/shared"
)

type RunLister interface {
	RecentRuns(ctx context.Context, jobType string, limit int) ([]jobs.Run, error)
}

type Handler struct {
	Runs RunLister
}

func NewHandler(runs RunLister) *Handler {
	return &Handler{Runs: runs}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/jobs/runs", h.handleListRuns)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	jobType := strings.TrimSpace(r.URL.Query().Get("type"))
	v := shared.NewValidator()
	v.Enum("type", jobType, []string{jobs.JobAttendanceSync, jobs.JobEmployeeSync}, "must be a known job type")
	if v.Reject(w, reqID) {
		return
	}

	page := shared.ParsePagination(r, 20, 200)
	runs, err := h.Runs.RecentRuns(r.Context(), jobType, page.Limit)
	if err != nil {
		slog.Error("list job runs failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", reqID)
		return
	}
	if runs == nil {
		runs = []jobs.Run{}
	}
	api.Success(w, runs, reqID)
}
