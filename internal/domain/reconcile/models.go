package reconcile

import (
	"time"

	"hrsync/internal/domain/attendance"
	"hrsync/internal/domain/employee"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseFetching    Phase = "fetching"
	PhaseNormalizing Phase = "normalizing"
	PhaseUpserting   Phase = "upserting"
)

type Kind string

const (
	KindAttendance Kind = "attendance"
	KindEmployee   Kind = "employee"
)

const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerRead      = "read"
)

// Provenance tells whether served data came from the device or the local
// store.
type Provenance string

const (
	FromRemote Provenance = "remote"
	FromLocal  Provenance = "local"
)

type SyncResult struct {
	Kind        Kind      `json:"kind"`
	Trigger     string    `json:"trigger"`
	OK          bool      `json:"ok"`
	Skipped     bool      `json:"skipped"`
	Fetched     int       `json:"fetched"`
	Dropped     int       `json:"dropped"`
	Upserted    int       `json:"upserted"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	err error
}

// Err returns the failure of the cycle, matchable with errors.Is.
func (r SyncResult) Err() error {
	return r.err
}

func (r SyncResult) Duration() time.Duration {
	if r.CompletedAt.Before(r.StartedAt) {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

type Page struct {
	Items      []attendance.Record `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"totalPages"`
	Source     Provenance          `json:"source"`
}

func newPage(items []attendance.Record, total, page, limit int, source Provenance) Page {
	if items == nil {
		items = []attendance.Record{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page{Items: items, Total: total, Page: page, Limit: limit, TotalPages: pages, Source: source}
}

type ClearResult struct {
	Deleted         int64  `json:"deleted"`
	RemoteAttempted bool   `json:"remoteAttempted"`
	RemoteCleared   bool   `json:"remoteCleared"`
	RemoteError     string `json:"remoteError,omitempty"`
}

// NewEmployee carries the local record plus the device-only enrolment fields.
type NewEmployee struct {
	Employee  employee.Employee
	Card      int
	GroupID   string
	Password  string
	Privilege int
}

type EmployeeWrite struct {
	Employee     employee.Employee `json:"employee"`
	RemoteSynced bool              `json:"remoteSynced"`
	RemoteError  string            `json:"remoteError,omitempty"`
}

type Status struct {
	Phase          Phase       `json:"phase"`
	Busy           bool        `json:"busy"`
	Stale          bool        `json:"stale"`
	LastAttendance *SyncResult `json:"lastAttendance,omitempty"`
	LastEmployee   *SyncResult `json:"lastEmployee,omitempty"`
}
