package jobs

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestStoreStartAndFinish(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery(`INSERT INTO job_runs`).
		WithArgs(JobAttendanceSync, StatusRunning).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`UPDATE job_runs`).
		WithArgs(StatusCompleted, []byte(`{"ok":true}`), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	id, err := store.Start(context.Background(), JobAttendanceSync)
	if err != nil || id != 7 {
		t.Fatalf("unexpected start result %d (%v)", id, err)
	}
	if err := store.Finish(context.Background(), id, StatusCompleted, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	started := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	completed := started.Add(time.Second)
	mock.ExpectQuery(`FROM job_runs`).
		WithArgs("", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "job_type", "status", "details_json", "started_at", "completed_at"}).
			AddRow(int64(2), JobEmployeeSync, StatusRunning, []byte("null"), started, (*time.Time)(nil)).
			AddRow(int64(1), JobAttendanceSync, StatusCompleted, []byte(`{"upserted":3}`), started, &completed))

	runs, err := store.Recent(context.Background(), "", 5)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].Details != nil || runs[1].CompletedAt == nil || string(runs[1].Details) != `{"upserted":3}` {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}
