package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"hrsync/internal/domain/reconcile"
	"hrsync/internal/platform/config"
)

const (
	JobAttendanceSync = "attendance_sync"
	JobEmployeeSync   = "employee_sync"

	queueSize = 16
)

// Syncer is the part of the reconciliation engine the scheduler drives.
type Syncer interface {
	ScheduledSync(ctx context.Context) reconcile.SyncResult
	ManualSync(ctx context.Context) reconcile.SyncResult
	ScheduledEmployeeSync(ctx context.Context) reconcile.SyncResult
	SyncEmployees(ctx context.Context) reconcile.SyncResult
}

type Service struct {
	Runs   RunStore
	Syncer Syncer
	Cfg    config.Config
	queue  chan job
	wg     sync.WaitGroup
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(runs RunStore, syncer Syncer, cfg config.Config) *Service {
	return &Service{
		Runs:   runs,
		Syncer: syncer,
		Cfg:    cfg,
		queue:  make(chan job, queueSize),
	}
}

// Start launches the worker and the periodic schedules; they stop when ctx
// is cancelled. Wait blocks until they have returned.
func (s *Service) Start(ctx context.Context) {
	s.spawn(func() { s.worker(ctx) })
	if s.Cfg.SyncInterval > 0 {
		s.spawn(func() {
			s.schedule(ctx, JobAttendanceSync, s.Cfg.SyncInterval, s.Syncer.ScheduledSync)
		})
	}
	if s.Cfg.EmployeeSyncInterval > 0 {
		s.spawn(func() {
			s.schedule(ctx, JobEmployeeSync, s.Cfg.EmployeeSyncInterval, s.Syncer.ScheduledEmployeeSync)
		})
	}
}

func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// SyncAttendancesNow runs a manual attendance cycle and records it.
func (s *Service) SyncAttendancesNow(ctx context.Context) reconcile.SyncResult {
	return s.runSync(ctx, JobAttendanceSync, s.Syncer.ManualSync)
}

func (s *Service) SyncEmployeesNow(ctx context.Context) reconcile.SyncResult {
	return s.runSync(ctx, JobEmployeeSync, s.Syncer.SyncEmployees)
}

func (s *Service) RecentRuns(ctx context.Context, jobType string, limit int) ([]Run, error) {
	return s.Runs.Recent(ctx, jobType, limit)
}

func (s *Service) runSync(ctx context.Context, jobType string, fn func(context.Context) reconcile.SyncResult) reconcile.SyncResult {
	var result reconcile.SyncResult
	_, _ = s.RunNow(ctx, jobType, func(ctx context.Context) (any, error) {
		result = fn(ctx)
		return result, syncErr(result)
	})
	return result
}

func (s *Service) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	var runID int64
	id, err := s.Runs.Start(ctx, j.Type)
	if err != nil {
		slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
	} else {
		runID = id
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != 0 {
		if updErr := s.Runs.Finish(context.WithoutCancel(ctx), runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "jobType", j.Type, "err", updErr)
		}
	}
	return details, err
}

// schedule enqueues one run immediately and then one per tick.
func (s *Service) schedule(ctx context.Context, jobType string, interval time.Duration, fn func(context.Context) reconcile.SyncResult) {
	run := func(ctx context.Context) (any, error) {
		result := fn(ctx)
		return result, syncErr(result)
	}
	s.Enqueue(jobType, run)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(jobType, run)
		}
	}
}

func syncErr(result reconcile.SyncResult) error {
	if result.OK || result.Skipped {
		return nil
	}
	if err := result.Err(); err != nil {
		return err
	}
	return errors.New(result.Error)
}
