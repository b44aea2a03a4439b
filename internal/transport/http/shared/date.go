package shared

import "time"

const dateOnlyLayout = "2006-01-02"

var naiveLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// ParseDate accepts RFC3339, the device's "YYYY-MM-DD HH:MM:SS" form or
// YYYY-MM-DD. Values without an offset are read as UTC. An empty value
// yields the zero time.
func ParseDate(value string) (time.Time, error) {
	parsed, _, err := ParseTime(value, time.UTC)
	return parsed, err
}

// ParseTime is ParseDate reading offset-less values in loc. dateOnly
// reports the YYYY-MM-DD form, which resolves to midnight in loc.
func ParseTime(value string, loc *time.Location) (parsed time.Time, dateOnly bool, err error) {
	if value == "" {
		return time.Time{}, false, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if parsed, err = time.Parse(time.RFC3339, value); err == nil {
		return parsed, false, nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err = time.ParseInLocation(layout, value, loc); err == nil {
			return parsed, false, nil
		}
	}
	if parsed, err = time.ParseInLocation(dateOnlyLayout, value, loc); err == nil {
		return parsed, true, nil
	}
	return time.Time{}, false, err
}
