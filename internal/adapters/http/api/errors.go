package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrBadMonthKey = errors.New("month key must be YYYY-MM")
)
