// Package snapshot encodes a single month's record into a URL-safe token
// for read-only sharing, and decodes such tokens back. Tokens are detached
// copies: later edits to the live record set never change an issued token.
package snapshot

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/types"
)

// payload is the canonical wire shape. JSON keeps arbitrary Unicode names
// byte-safe before the base64 step; RawURLEncoding keeps the token free of
// characters that would need percent-encoding in a URL path segment.
type payload struct {
	Month  string               `json:"month"`
	Record *model.MonthlyRecord `json:"record"`
}

// Encode serializes a month key and record into a shareable token.
func Encode(monthKey string, record model.MonthlyRecord) (string, error) {
	if !types.ValidMonthKey(monthKey) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, monthKey)
	}
	b, err := json.Marshal(payload{Month: monthKey, Record: &record})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode reverses Encode. Any parse or validation failure returns ErrDecode;
// a malformed token is never partially trusted.
func Decode(token string) (string, model.MonthlyRecord, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", model.MonthlyRecord{}, ErrDecode
	}
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return "", model.MonthlyRecord{}, ErrDecode
	}
	if p.Record == nil || !types.ValidMonthKey(p.Month) {
		return "", model.MonthlyRecord{}, ErrDecode
	}
	return p.Month, *p.Record, nil
}
