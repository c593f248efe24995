package service

import "errors"

// Sentinel kinds for engine errors.
var (
	ErrLoading         = errors.New("record set load in progress")
	ErrNoIdentity      = errors.New("no active identity")
	ErrInvalidMonthKey = errors.New("invalid month key")
)
