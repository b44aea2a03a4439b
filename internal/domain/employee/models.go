package employee

import (
	"strings"
	"time"
)

type LoginMethod string

const (
	LoginPassOrFingerOrCard LoginMethod = "PassOrFingerOrCard"
	LoginCard               LoginMethod = "Card"
	LoginFingerAndPass      LoginMethod = "FingerAndPass"
)

const (
	DefaultName = "N/A"
	DefaultType = "Permanent"
)

func LoginMethods() []string {
	return []string{string(LoginPassOrFingerOrCard), string(LoginCard), string(LoginFingerAndPass)}
}

// ParseLoginMethod accepts the vendor spelling case-insensitively; an empty
// value yields the default method.
func ParseLoginMethod(value string) (LoginMethod, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return LoginPassOrFingerOrCard, nil
	}
	for _, method := range LoginMethods() {
		if strings.EqualFold(value, method) {
			return LoginMethod(method), nil
		}
	}
	return "", ErrInvalidLoginMethod
}

type Employee struct {
	ID           string      `json:"id"`
	ExternalID   string      `json:"externalId,omitempty"`
	UserID       string      `json:"userId"`
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	BirthDate    time.Time   `json:"birthDate"`
	Type         string      `json:"type"`
	LoginMethod  LoginMethod `json:"loginMethod"`
	DepartmentID string      `json:"departmentId,omitempty"`
	PlanningID   string      `json:"planningId,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// FullName joins first and last name, skipping the "N/A" placeholder.
func (e Employee) FullName() string {
	return joinName(e.FirstName, e.LastName)
}

type Department struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Profile is the display projection attached to attendance rows.
type Profile struct {
	UserID         string
	Name           string
	LoginMethod    LoginMethod
	DepartmentName string
}

// SyncedUser is a vendor directory entry reduced to what the local
// directory keeps.
type SyncedUser struct {
	ExternalID string
	UserID     string
	Name       string
}

func joinName(first, last string) string {
	parts := make([]string, 0, 2)
	for _, part := range []string{first, last} {
		part = strings.TrimSpace(part)
		if part == "" || part == DefaultName {
			continue
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}
