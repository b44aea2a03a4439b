// Package query joins attendance pages with employee display fields.
package query

import (
	"context"
	"log/slog"

	"hrsync/internal/domain/attendance"
	"hrsync/internal/domain/employee"
	"hrsync/internal/domain/reconcile"
)

const NoDepartment = "No department"

type Pager interface {
	PageWithFallback(ctx context.Context, filter attendance.Filter, page, pageSize int) (reconcile.Page, error)
}

type ProfileLookup interface {
	ListProfiles(ctx context.Context, userIDs []string) (map[string]employee.Profile, error)
}

type EnrichedAttendance struct {
	attendance.Record
	Name           string `json:"name"`
	LoginMethod    string `json:"loginMethod"`
	DepartmentName string `json:"departmentName"`
}

type EnrichedPage struct {
	Items      []EnrichedAttendance `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"totalPages"`
	Source     reconcile.Provenance `json:"source"`
}

type Facade struct {
	pager    Pager
	profiles ProfileLookup
}

func NewFacade(pager Pager, profiles ProfileLookup) *Facade {
	return &Facade{pager: pager, profiles: profiles}
}

// EnrichedPage never drops a record: unknown employees and lookup failures
// leave the display fields blank.
func (f *Facade) EnrichedPage(ctx context.Context, filter attendance.Filter, page, pageSize int) (EnrichedPage, error) {
	raw, err := f.pager.PageWithFallback(ctx, filter, page, pageSize)
	if err != nil {
		return EnrichedPage{}, err
	}

	profiles, err := f.profiles.ListProfiles(ctx, distinctUserIDs(raw.Items))
	if err != nil {
		slog.Warn("employee lookup failed, serving unenriched page", "err", err)
		profiles = nil
	}

	items := make([]EnrichedAttendance, 0, len(raw.Items))
	for _, rec := range raw.Items {
		items = append(items, enrich(rec, profiles))
	}
	return EnrichedPage{
		Items:      items,
		Total:      raw.Total,
		Page:       raw.Page,
		Limit:      raw.Limit,
		TotalPages: raw.TotalPages,
		Source:     raw.Source,
	}, nil
}

func enrich(rec attendance.Record, profiles map[string]employee.Profile) EnrichedAttendance {
	out := EnrichedAttendance{Record: rec}
	profile, ok := profiles[rec.UserID]
	if !ok {
		return out
	}
	out.Name = profile.Name
	out.LoginMethod = string(profile.LoginMethod)
	out.DepartmentName = profile.DepartmentName
	if out.DepartmentName == "" {
		out.DepartmentName = NoDepartment
	}
	return out
}

func distinctUserIDs(records []attendance.Record) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.UserID == "" {
			continue
		}
		if _, ok := seen[rec.UserID]; ok {
			continue
		}
		seen[rec.UserID] = struct{}{}
		out = append(out, rec.UserID)
	}
	return out
}
