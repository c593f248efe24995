// Package types contains common types used across the application
package types

import (
	"regexp"
	"time"
)

// Identity identifies the owner of a record set. Anonymous identities are
// guest sessions backed by the local store; registered identities are backed
// by the remote document store.
type Identity struct {
	ID        string `json:"id"`
	Anonymous bool   `json:"anonymous"`
}

// Zero reports whether the identity is unset (logged out).
func (i Identity) Zero() bool {
	return i.ID == ""
}

// monthKeyPattern matches YYYY-MM keys. Lexicographic order on valid keys
// equals chronological order.
var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonthKey reports whether key is a well-formed YYYY-MM month key.
func ValidMonthKey(key string) bool {
	return monthKeyPattern.MatchString(key)
}

// MonthKey formats t as a YYYY-MM month key.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
