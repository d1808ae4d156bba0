package summary

import "errors"

var (
	// ErrInvalidRange is returned for malformed or inverted date bounds.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrStoreUnavailable marks an upstream read failure. The service degrades instead of returning it.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrMalformedRecord marks a stored record that cannot be used; it is skipped.
	ErrMalformedRecord = errors.New("malformed record")
)
