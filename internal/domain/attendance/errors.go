package attendance

import "errors"

var (
	// ErrRemoteUnavailable marks vendor API failures: transport errors,
	// non-2xx responses and exhausted retries.
	ErrRemoteUnavailable = errors.New("attendance: remote device unavailable")
	ErrMalformedRecord   = errors.New("attendance: malformed record")
	ErrStoreFailure      = errors.New("attendance: store failure")
	ErrInvalidPage       = errors.New("attendance: invalid page")
)
