package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hrsync/internal/domain/reconcile"
	"hrsync/internal/platform/config"
)

type memRuns struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]*Run
}

func newMemRuns() *memRuns {
	return &memRuns{runs: map[int64]*Run{}}
}

func (m *memRuns) Start(_ context.Context, jobType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.runs[m.nextID] = &Run{ID: m.nextID, JobType: jobType, Status: StatusRunning, StartedAt: time.Now()}
	return m.nextID, nil
}

func (m *memRuns) Finish(_ context.Context, id int64, status string, details []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return errors.New("unknown run")
	}
	now := time.Now()
	run.Status = status
	run.Details = json.RawMessage(details)
	run.CompletedAt = &now
	return nil
}

func (m *memRuns) Recent(_ context.Context, jobType string, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Run{}
	for id := m.nextID; id > 0 && len(out) < limit; id-- {
		if run := m.runs[id]; run != nil && (jobType == "" || run.JobType == jobType) {
			out = append(out, *run)
		}
	}
	return out, nil
}

type fakeSyncer struct {
	attendance atomic.Int32
	employees  atomic.Int32
	result     reconcile.SyncResult
}

func (f *fakeSyncer) ScheduledSync(context.Context) reconcile.SyncResult {
	f.attendance.Add(1)
	return f.result
}

func (f *fakeSyncer) ManualSync(context.Context) reconcile.SyncResult {
	f.attendance.Add(1)
	return f.result
}

func (f *fakeSyncer) ScheduledEmployeeSync(context.Context) reconcile.SyncResult {
	f.employees.Add(1)
	return f.result
}

func (f *fakeSyncer) SyncEmployees(context.Context) reconcile.SyncResult {
	f.employees.Add(1)
	return f.result
}

func TestSyncAttendancesNowRecordsRun(t *testing.T) {
	runs := newMemRuns()
	syncer := &fakeSyncer{result: reconcile.SyncResult{Kind: reconcile.KindAttendance, OK: true, Upserted: 4}}
	svc := New(runs, syncer, config.Config{})

	result := svc.SyncAttendancesNow(context.Background())
	if !result.OK || result.Upserted != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
	recent, _ := svc.RecentRuns(context.Background(), JobAttendanceSync, 10)
	if len(recent) != 1 || recent[0].Status != StatusCompleted || recent[0].CompletedAt == nil {
		t.Fatalf("unexpected runs: %+v", recent)
	}
	var details map[string]any
	if err := json.Unmarshal(recent[0].Details, &details); err != nil || details["upserted"] != float64(4) {
		t.Fatalf("unexpected details %s (%v)", recent[0].Details, err)
	}
}

func TestFailedSyncMarksRunFailed(t *testing.T) {
	runs := newMemRuns()
	syncer := &fakeSyncer{result: reconcile.SyncResult{Kind: reconcile.KindEmployee, Error: "device offline"}}
	svc := New(runs, syncer, config.Config{})

	svc.SyncEmployeesNow(context.Background())

	recent, _ := svc.RecentRuns(context.Background(), "", 10)
	if len(recent) != 1 || recent[0].Status != StatusFailed || recent[0].JobType != JobEmployeeSync {
		t.Fatalf("unexpected runs: %+v", recent)
	}
}

func TestSkippedSyncIsNotAFailure(t *testing.T) {
	runs := newMemRuns()
	syncer := &fakeSyncer{result: reconcile.SyncResult{Skipped: true}}
	svc := New(runs, syncer, config.Config{})

	svc.SyncAttendancesNow(context.Background())

	recent, _ := svc.RecentRuns(context.Background(), "", 1)
	if recent[0].Status != StatusCompleted {
		t.Fatalf("expected completed status for a skipped cycle, got %q", recent[0].Status)
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	svc := New(newMemRuns(), &fakeSyncer{}, config.Config{})
	noop := func(context.Context) (any, error) { return nil, nil }
	for i := 0; i < queueSize; i++ {
		if !svc.Enqueue("noop", noop) {
			t.Fatalf("enqueue %d unexpectedly dropped", i)
		}
	}
	if svc.Enqueue("noop", noop) {
		t.Fatal("expected enqueue to drop when the queue is full")
	}
}

func TestStartRunsSchedulesUntilCancelled(t *testing.T) {
	runs := newMemRuns()
	syncer := &fakeSyncer{result: reconcile.SyncResult{OK: true}}
	svc := New(runs, syncer, config.Config{SyncInterval: 10 * time.Millisecond, EmployeeSyncInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for syncer.attendance.Load() < 2 || syncer.employees.Load() < 1 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("schedules did not fire: attendance=%d employees=%d", syncer.attendance.Load(), syncer.employees.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
