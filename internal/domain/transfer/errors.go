package transfer

import "errors"

// Sentinel kinds for import errors.
var (
	ErrMalformedDocument = errors.New("malformed import document")
)
