package repository

import "errors"

// Sentinel kinds for store errors. Callers branch with errors.Is.
var (
	// ErrNotFound means no document exists for the identity yet.
	ErrNotFound = errors.New("record set not found")
	// ErrCorruptData means the stored text could not be parsed.
	ErrCorruptData = errors.New("stored record set is corrupt")
	// ErrPermissionDenied means the backend rejected the identity's access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable means a transient backend or transport failure.
	ErrUnavailable = errors.New("store unavailable")
)
