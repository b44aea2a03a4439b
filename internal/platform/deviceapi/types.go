package deviceapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt decodes a JSON number or numeric string. Valid is false for null,
// empty or non-numeric input so callers can tell a missing field from zero.
type FlexInt struct {
	Value int
	Valid bool
}

func Int(v int) FlexInt { return FlexInt{Value: v, Valid: true} }

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		*f = FlexInt{Value: n, Valid: true}
		return nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil && n == float64(int(n)) {
		*f = FlexInt{Value: int(n), Valid: true}
	}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// FlexString decodes a JSON string or number as text.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

// RawAttendance is a punch exactly as the device reports it.
type RawAttendance struct {
	Punch     FlexInt    `json:"punch"`
	Status    FlexInt    `json:"status"`
	Timestamp string     `json:"timestamp"`
	UID       FlexInt    `json:"uid"`
	UserID    FlexString `json:"user_id"`
}

// RawUser is a device directory entry.
type RawUser struct {
	UID       FlexInt    `json:"uid"`
	UserID    FlexString `json:"user_id"`
	Name      string     `json:"name"`
	Privilege FlexInt    `json:"privilege"`
	GroupID   FlexString `json:"group_id"`
	Card      FlexInt    `json:"card"`
}

// NewUser is the payload accepted by POST /users.
type NewUser struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Card      int    `json:"card"`
	GroupID   string `json:"group_id"`
	Password  string `json:"password"`
	Privilege int    `json:"privilege"`
}

const (
	StateActive = "active"
	StateDown   = "down"
)

type Status struct {
	DeviceID   string `json:"deviceId"`
	State      string `json:"state"`
	HTTPStatus int    `json:"httpStatus,omitempty"`
	Error      string `json:"error,omitempty"`
}
