package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	attendanceSyncs syncCounters
	employeeSyncs   syncCounters
}

type syncCounters struct {
	ok         uint64
	failed     uint64
	skipped    uint64
	upserted   uint64
	durationMs uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordSync counts one reconciliation cycle; kind is "attendance" or
// "employee".
func (c *Collector) RecordSync(kind string, ok, skipped bool, upserted int, elapsed time.Duration) {
	counters := &c.attendanceSyncs
	if kind == "employee" {
		counters = &c.employeeSyncs
	}
	switch {
	case skipped:
		atomic.AddUint64(&counters.skipped, 1)
		return
	case ok:
		atomic.AddUint64(&counters.ok, 1)
	default:
		atomic.AddUint64(&counters.failed, 1)
	}
	if upserted > 0 {
		atomic.AddUint64(&counters.upserted, uint64(upserted))
	}
	atomic.AddUint64(&counters.durationMs, uint64(elapsed.Milliseconds()))
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"attendanceSync":   c.attendanceSyncs.snapshot(),
		"employeeSync":     c.employeeSyncs.snapshot(),
	}
}

func (s *syncCounters) snapshot() map[string]any {
	return map[string]any{
		"ok":         atomic.LoadUint64(&s.ok),
		"failed":     atomic.LoadUint64(&s.failed),
		"skipped":    atomic.LoadUint64(&s.skipped),
		"upserted":   atomic.LoadUint64(&s.upserted),
		"durationMs": atomic.LoadUint64(&s.durationMs),
	}
}
