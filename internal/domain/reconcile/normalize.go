package reconcile

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hrsync/internal/domain/attendance"
	"hrsync/internal/platform/deviceapi"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
}

// parseTimestamp reads device timestamps; values without an offset are
// interpreted in loc.
func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: missing timestamp", attendance.ErrMalformedRecord)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", attendance.ErrMalformedRecord, value)
}

func normalizeRecord(raw deviceapi.RawAttendance, loc *time.Location) (attendance.Record, error) {
	if !raw.UID.Valid {
		return attendance.Record{}, fmt.Errorf("%w: missing uid", attendance.ErrMalformedRecord)
	}
	ts, err := parseTimestamp(raw.Timestamp, loc)
	if err != nil {
		return attendance.Record{}, err
	}
	return attendance.Record{
		UID:       raw.UID.Value,
		UserID:    strings.TrimSpace(string(raw.UserID)),
		Punch:     raw.Punch.Value,
		Status:    raw.Status.Value,
		Timestamp: ts,
	}, nil
}

// normalize converts a fetched batch, dropping malformed entries and
// collapsing duplicate keys. It returns the number of dropped entries.
func normalize(raw []deviceapi.RawAttendance, loc *time.Location) ([]attendance.Record, int) {
	out := make([]attendance.Record, 0, len(raw))
	dropped := 0
	for i, r := range raw {
		rec, err := normalizeRecord(r, loc)
		if err != nil {
			dropped++
			slog.Warn("dropping attendance record", "index", i, "uid", r.UID.Value, "err", err)
			continue
		}
		out = append(out, rec)
	}
	return attendance.Dedupe(out), dropped
}
