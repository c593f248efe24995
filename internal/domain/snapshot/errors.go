package snapshot

import "errors"

// Sentinel kinds for snapshot codec errors.
var (
	ErrDecode          = errors.New("invalid snapshot token")
	ErrInvalidMonthKey = errors.New("invalid month key")
)
