package shared

import (
	"net/http"
	"strings"
	"time"

	"hrsync/internal/domain/attendance"
)

// ParseAttendanceFilter builds the allow-listed filter from query
// parameters. Unknown parameters are ignored; malformed values are reported
// on v. Offset-less times are read in loc, the device's zone. A date-only
// "to" covers that whole day.
func ParseAttendanceFilter(r *http.Request, v *Validator, loc *time.Location) attendance.Filter {
	if loc == nil {
		loc = time.UTC
	}
	q := r.URL.Query()
	filter := attendance.Filter{
		UserID: strings.TrimSpace(q.Get("userId")),
		UID:    v.OptionalInt("uid", q.Get("uid")),
		Status: v.OptionalInt("status", q.Get("status")),
		Punch:  v.OptionalInt("punch", q.Get("punch")),
	}
	filter.Timestamp, _ = v.OptionalTime("timestamp", q.Get("timestamp"), loc)
	filter.From, _ = v.OptionalTime("from", q.Get("from"), loc)

	to, dateOnly := v.OptionalTime("to", q.Get("to"), loc)
	if to != nil && dateOnly {
		until := to.In(loc).AddDate(0, 0, 1).UTC()
		filter.Until = &until
	} else {
		filter.To = to
	}

	if filter.From != nil && to != nil {
		v.DateOrder("from", *filter.From, "to", *to)
	}
	return filter
}
