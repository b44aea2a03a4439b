// Package reconcile mirrors the device's attendance log and user directory
// into the local store and serves reads that survive a device outage.
//
// One Engine is built at startup and shared by the scheduler and the HTTP
// handlers. At most one attendance cycle runs at a time; a call that finds
// a cycle in flight returns the previous result marked Skipped instead of
// queueing. Employee sync has its own guard.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hrsync/internal/domain/attendance"
	"hrsync/internal/domain/employee"
	"hrsync/internal/platform/deviceapi"
	"hrsync/internal/platform/events"
	"hrsync/internal/platform/retry"
)

// Remote is the vendor device surface the engine depends on.
type Remote interface {
	FetchAttendances(ctx context.Context, filters map[string]string) ([]deviceapi.RawAttendance, error)
	DeleteAttendances(ctx context.Context) error
	FetchUsers(ctx context.Context) ([]deviceapi.RawUser, error)
	CreateUser(ctx context.Context, user deviceapi.NewUser) error
	DeleteUser(ctx context.Context, uid string) error
}

// Recorder receives one call per finished or skipped cycle.
type Recorder interface {
	RecordSync(kind string, ok, skipped bool, upserted int, elapsed time.Duration)
}

type Options struct {
	Retry    retry.Policy
	Location *time.Location
	Recorder Recorder
	Now      func() time.Time
}

type Engine struct {
	remote      Remote
	attendances attendance.StoreAPI
	employees   employee.StoreAPI
	events      events.Publisher
	retry       retry.Policy
	location    *time.Location
	recorder    Recorder
	now         func() time.Time

	busy         atomic.Bool
	employeeBusy atomic.Bool

	mu             sync.RWMutex
	phase          Phase
	stale          bool
	lastAttendance *SyncResult
	lastEmployee   *SyncResult
}

func New(remote Remote, attendances attendance.StoreAPI, employees employee.StoreAPI, publisher events.Publisher, opts Options) *Engine {
	policy := opts.Retry
	if policy.MaxAttempts < 1 {
		policy = retry.Default()
	}
	if policy.Exhausted == nil {
		policy.Exhausted = attendance.ErrRemoteUnavailable
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Engine{
		remote:      remote,
		attendances: attendances,
		employees:   employees,
		events:      publisher,
		retry:       policy,
		location:    loc,
		recorder:    opts.Recorder,
		now:         now,
		phase:       PhaseIdle,
	}
}

// ScheduledSync runs one full attendance cycle and logs the outcome.
func (e *Engine) ScheduledSync(ctx context.Context) SyncResult {
	result, _ := e.syncAttendances(ctx, TriggerScheduled, attendance.Filter{})
	logResult(result)
	return result
}

func (e *Engine) ManualSync(ctx context.Context) SyncResult {
	result, _ := e.syncAttendances(ctx, TriggerManual, attendance.Filter{})
	logResult(result)
	return result
}

// PageWithFallback serves a page from a live fetch when the device answers,
// and from the local store when it does not or a cycle is already running.
// Only store failures are returned as errors.
func (e *Engine) PageWithFallback(ctx context.Context, filter attendance.Filter, page, pageSize int) (Page, error) {
	if _, err := attendance.Offset(page, pageSize); err != nil {
		return Page{}, err
	}

	result, fetched := e.syncAttendances(ctx, TriggerRead, filter)
	switch {
	case result.Skipped:
	case result.OK:
		matched := make([]attendance.Record, 0, len(fetched))
		for _, rec := range fetched {
			if filter.Matches(rec) {
				matched = append(matched, rec)
			}
		}
		items, err := attendance.Paginate(matched, page, pageSize)
		if err != nil {
			return Page{}, err
		}
		return newPage(items, len(matched), page, pageSize, FromRemote), nil
	case errors.Is(result.Err(), attendance.ErrStoreFailure):
		return Page{}, result.Err()
	default:
		slog.Warn("serving local attendances", "reason", result.Error)
	}

	items, total, err := e.attendances.FindPage(ctx, filter, page, pageSize)
	if err != nil {
		return Page{}, err
	}
	return newPage(items, total, page, pageSize, FromLocal), nil
}

// ClearAll deletes matching local records. The device log is only cleared
// for an unfiltered delete; a device failure is reported, not returned.
func (e *Engine) ClearAll(ctx context.Context, filter attendance.Filter) (ClearResult, error) {
	var out ClearResult
	if filter.IsZero() {
		out.RemoteAttempted = true
		if err := e.remote.DeleteAttendances(ctx); err != nil {
			out.RemoteError = err.Error()
			slog.Warn("remote attendance clear failed", "err", err)
		} else {
			out.RemoteCleared = true
		}
	}

	deleted, err := e.attendances.DeleteAll(ctx, filter)
	if err != nil {
		return out, err
	}
	out.Deleted = deleted
	slog.Info("attendances cleared", "deleted", deleted, "remoteCleared", out.RemoteCleared, "filtered", !filter.IsZero())
	return out, nil
}

func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{
		Phase:          e.phase,
		Busy:           e.busy.Load(),
		Stale:          e.stale,
		LastAttendance: cloneResult(e.lastAttendance),
		LastEmployee:   cloneResult(e.lastEmployee),
	}
}

// syncAttendances is the body shared by every attendance cycle. It returns
// the normalized batch so the read path can page over it.
func (e *Engine) syncAttendances(ctx context.Context, trigger string, filter attendance.Filter) (SyncResult, []attendance.Record) {
	if !e.busy.CompareAndSwap(false, true) {
		return e.skipped(KindAttendance, trigger), nil
	}
	defer e.busy.Store(false)
	defer e.setPhase(PhaseIdle)

	result := SyncResult{Kind: KindAttendance, Trigger: trigger, StartedAt: e.now()}

	e.setPhase(PhaseFetching)
	policy := e.retry
	policy.Name = "fetch attendances"
	raw, err := retry.Do(ctx, policy, func(ctx context.Context) ([]deviceapi.RawAttendance, error) {
		return e.remote.FetchAttendances(ctx, filter.Params())
	})
	if err != nil {
		return e.finish(result, err), nil
	}
	result.Fetched = len(raw)

	e.setPhase(PhaseNormalizing)
	records, dropped := normalize(raw, e.location)
	result.Dropped = dropped

	e.setPhase(PhaseUpserting)
	written, err := e.attendances.UpsertMany(ctx, records)
	result.Upserted = written
	if err != nil {
		return e.finish(result, err), records
	}
	if written > 0 {
		e.events.Publish(events.Event{Type: events.TypeAttendanceUpdate, Data: records})
	}
	return e.finish(result, nil), records
}

func (e *Engine) finish(result SyncResult, err error) SyncResult {
	result.CompletedAt = e.now()
	result.OK = err == nil
	result.err = err
	if err != nil {
		result.Error = err.Error()
	}

	e.mu.Lock()
	stored := result
	switch result.Kind {
	case KindAttendance:
		e.lastAttendance = &stored
		e.stale = err != nil
	case KindEmployee:
		e.lastEmployee = &stored
	}
	e.mu.Unlock()

	if e.recorder != nil {
		e.recorder.RecordSync(string(result.Kind), result.OK, false, result.Upserted, result.Duration())
	}
	return result
}

func (e *Engine) skipped(kind Kind, trigger string) SyncResult {
	e.mu.RLock()
	last := e.lastAttendance
	if kind == KindEmployee {
		last = e.lastEmployee
	}
	var out SyncResult
	if last != nil {
		out = *last
	}
	e.mu.RUnlock()

	out.Kind = kind
	out.Trigger = trigger
	out.Skipped = true
	if e.recorder != nil {
		e.recorder.RecordSync(string(kind), out.OK, true, 0, 0)
	}
	slog.Info("sync already in progress", "kind", kind, "trigger", trigger)
	return out
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

func logResult(result SyncResult) {
	attrs := []any{
		"kind", result.Kind,
		"trigger", result.Trigger,
		"fetched", result.Fetched,
		"dropped", result.Dropped,
		"upserted", result.Upserted,
		"durationMs", result.Duration().Milliseconds(),
	}
	switch {
	case result.Skipped:
		return
	case result.OK:
		slog.Info("sync completed", attrs...)
	default:
		slog.Error("sync failed", append(attrs, "err", result.Error)...)
	}
}

func cloneResult(r *SyncResult) *SyncResult {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

func storeFailure(op string, err error) error {
	if errors.Is(err, attendance.ErrStoreFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", attendance.ErrStoreFailure, op, err)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}
