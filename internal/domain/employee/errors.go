package employee

import "errors"

var (
	ErrNotFound           = errors.New("employee: not found")
	ErrAlreadyExists      = errors.New("employee: already exists")
	ErrInvalidLoginMethod = errors.New("employee: invalid login method")
	ErrDepartmentNotFound = errors.New("employee: department not found")
)
