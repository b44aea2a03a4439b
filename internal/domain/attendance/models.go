package attendance

import "time"

const (
	PunchMissing = 0
)

type Record struct {
	ID        int64     `json:"id,omitempty"`
	UID       int       `json:"uid"`
	UserID    string    `json:"userId"`
	Punch     int       `json:"punch"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Key identifies one punch event on the device.
type Key struct {
	UID       int
	Timestamp time.Time
}

func (r Record) Key() Key {
	return Key{UID: r.UID, Timestamp: r.Timestamp.UTC()}
}

func (r Record) Completed() bool {
	return r.Punch != PunchMissing
}

// Dedupe collapses records sharing a Key, keeping the last occurrence at the
// position of the first one.
func Dedupe(records []Record) []Record {
	if len(records) < 2 {
		return records
	}
	index := make(map[Key]int, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		key := rec.Key()
		if pos, ok := index[key]; ok {
			out[pos] = rec
			continue
		}
		index[key] = len(out)
		out = append(out, rec)
	}
	return out
}
