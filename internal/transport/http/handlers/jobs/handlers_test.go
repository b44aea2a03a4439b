package jobshandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"hrsync/internal/platform/jobs"
)

type fakeRuns struct {
	jobType string
	limit   int
	err     error
}

func (f *fakeRuns) RecentRuns(_ context.Context, jobType string, limit int) ([]jobs.Run, error) {
	f.jobType, f.limit = jobType, limit
	return nil, f.err
}

func serve(runs *fakeRuns, target string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	NewHandler(runs).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListRunsPassesTypeAndClampedLimit(t *testing.T) {
	runs := &fakeRuns{}
	rec := serve(runs, "/jobs/runs?type=attendance_sync&limit=1000")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if runs.jobType != jobs.JobAttendanceSync || runs.limit != 200 {
		t.Fatalf("unexpected args type=%q limit=%d", runs.jobType, runs.limit)
	}
}

func TestListRunsRejectsUnknownType(t *testing.T) {
	if rec := serve(&fakeRuns{}, "/jobs/runs?type=payroll"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListRunsStoreError(t *testing.T) {
	if rec := serve(&fakeRuns{err: errors.New("db down")}, "/jobs/runs"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
