package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Filter is the closed set of criteria accepted by list and delete
// operations. UserID matches as a case-insensitive substring; every other
// field matches exactly, except From/To which bound the timestamp inclusively
// and Until which bounds it exclusively.
type Filter struct {
	UserID    string
	UID       *int
	Status    *int
	Punch     *int
	Timestamp *time.Time
	From      *time.Time
	To        *time.Time
	Until     *time.Time
}

func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.UserID) == "" && f.UID == nil && f.Status == nil && f.Punch == nil &&
		f.Timestamp == nil && f.From == nil && f.To == nil && f.Until == nil
}

func (f Filter) Matches(rec Record) bool {
	if needle := strings.TrimSpace(f.UserID); needle != "" {
		if !strings.Contains(strings.ToLower(rec.UserID), strings.ToLower(needle)) {
			return false
		}
	}
	if f.UID != nil && rec.UID != *f.UID {
		return false
	}
	if f.Status != nil && rec.Status != *f.Status {
		return false
	}
	if f.Punch != nil && rec.Punch != *f.Punch {
		return false
	}
	if f.Timestamp != nil && !rec.Timestamp.Equal(*f.Timestamp) {
		return false
	}
	if f.From != nil && rec.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && rec.Timestamp.After(*f.To) {
		return false
	}
	if f.Until != nil && !rec.Timestamp.Before(*f.Until) {
		return false
	}
	return true
}

// Params renders the filter as vendor query parameters.
func (f Filter) Params() map[string]string {
	params := map[string]string{}
	if needle := strings.TrimSpace(f.UserID); needle != "" {
		params["user_id"] = needle
	}
	if f.UID != nil {
		params["uid"] = strconv.Itoa(*f.UID)
	}
	if f.Status != nil {
		params["status"] = strconv.Itoa(*f.Status)
	}
	if f.Punch != nil {
		params["punch"] = strconv.Itoa(*f.Punch)
	}
	if f.Timestamp != nil {
		params["timestamp"] = f.Timestamp.UTC().Format(time.RFC3339)
	}
	if f.From != nil {
		params["from"] = f.From.UTC().Format(time.RFC3339)
	}
	if f.To != nil {
		params["to"] = f.To.UTC().Format(time.RFC3339)
	}
	if f.Until != nil {
		// the device bound is inclusive and second-granular
		params["to"] = f.Until.Add(-time.Second).UTC().Format(time.RFC3339)
	}
	return params
}

// where builds a SQL predicate with placeholders numbered from 1.
func (f Filter) where() (string, []any) {
	var conditions []string
	var args []any
	add := func(expr string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}

	if needle := strings.TrimSpace(f.UserID); needle != "" {
		add(`user_id ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(needle))
	}
	if f.UID != nil {
		add("uid = $%d", *f.UID)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Punch != nil {
		add("punch = $%d", *f.Punch)
	}
	if f.Timestamp != nil {
		add("punched_at = $%d", f.Timestamp.UTC())
	}
	if f.From != nil {
		add("punched_at >= $%d", f.From.UTC())
	}
	if f.To != nil {
		add("punched_at <= $%d", f.To.UTC())
	}
	if f.Until != nil {
		add("punched_at < $%d", f.Until.UTC())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

// Offset returns the zero-based index of the first item on page.
func Offset(page, pageSize int) (int, error) {
	if page < 1 || pageSize < 1 {
		return 0, ErrInvalidPage
	}
	return (page - 1) * pageSize, nil
}

// Paginate slices an already filtered, ordered set.
func Paginate(records []Record, page, pageSize int) ([]Record, error) {
	offset, err := Offset(page, pageSize)
	if err != nil {
		return nil, err
	}
	if offset >= len(records) {
		return []Record{}, nil
	}
	end := min(offset+pageSize, len(records))
	out := make([]Record, end-offset)
	copy(out, records[offset:end])
	return out, nil
}
