// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Amount is a non-negative finite monetary or numeric value. Unmarshaling is
// deliberately forgiving: malformed, missing, or non-numeric JSON input
// coerces to zero instead of failing the whole document. Records imported
// from older schema versions or hand-edited backups flow through this type.
type Amount float64

// UnmarshalJSON accepts numbers, numeric strings, null, and garbage.
// Anything that does not parse to a finite non-negative number becomes 0.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = 0
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil
		}
		*a = clampAmount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	*a = clampAmount(f)
	return nil
}

func clampAmount(f float64) Amount {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return Amount(f)
}

// Score is an integer credit score reading, 0 meaning "unset". Same coercion
// rules as Amount.
type Score int

// UnmarshalJSON coerces malformed score input to 0.
func (s *Score) UnmarshalJSON(data []byte) error {
	var a Amount
	_ = a.UnmarshalJSON(data)
	*s = Score(a)
	return nil
}

// Frequency describes how often an income source pays out.
type Frequency string

// Supported payout frequencies.
const (
	Weekly       Frequency = "weekly"
	BiWeekly     Frequency = "bi-weekly"
	TwiceMonthly Frequency = "twice-monthly"
	Monthly      Frequency = "monthly"
	Yearly       Frequency = "yearly"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, BiWeekly, TwiceMonthly, Monthly, Yearly:
		return true
	}
	return false
}

// IncomeSource is one recurring income line item.
type IncomeSource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Amount    Amount    `json:"amount"`
	Frequency Frequency `json:"frequency"`
}

// LiabilityAccount is a credit card or loan balance with an optional limit.
type LiabilityAccount struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance Amount `json:"balance"`
	Limit   Amount `json:"limit"`
}

// Asset is one owned-value line item.
type Asset struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value Amount `json:"value"`
}

// NamedAmount is a generic named money line item, used for monthly bills.
type NamedAmount struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount Amount `json:"amount"`
}

// CreditScores holds the three bureau scores plus auxiliary readings.
// A zero value means the reading is unset, not a literal score of zero.
type CreditScores struct {
	Equifax    Score `json:"equifax"`
	TransUnion Score `json:"transunion"`
	Experian   Score `json:"experian"`
	FICO8      Score `json:"fico8"`
	FICO9      Score `json:"fico9"`
	Vantage3   Score `json:"vantage3"`
	Vantage4   Score `json:"vantage4"`
}

// Values returns the score readings in declaration order.
func (c CreditScores) Values() []int {
	return []int{
		int(c.Equifax), int(c.TransUnion), int(c.Experian),
		int(c.FICO8), int(c.FICO9), int(c.Vantage3), int(c.Vantage4),
	}
}

// MonthlyRecord is the unit of financial truth for one calendar month.
// Absent list fields are equivalent to empty lists; older backups may omit
// any of them.
type MonthlyRecord struct {
	Income       []IncomeSource     `json:"income"`
	CreditScores CreditScores       `json:"creditScores"`
	CreditCards  []LiabilityAccount `json:"creditCards"`
	Loans        []LiabilityAccount `json:"loans"`
	Assets       []Asset            `json:"assets"`
	MonthlyBills []NamedAmount      `json:"monthlyBills"`
}

// NewMonthlyRecord returns the all-zero template used when a month is viewed
// before any data exists for it.
func NewMonthlyRecord() MonthlyRecord {
	return MonthlyRecord{}
}

// NewItemID returns a fresh unique line-item identifier. IDs are never
// reused after deletion; uniqueness comes from the generator, not the list.
func NewItemID() string {
	return uuid.NewString()
}

// Normalize assigns identifiers to line items that lack one. Amounts are
// already clamped at decode time; programmatic callers get the same
// guarantee here.
func (r *MonthlyRecord) Normalize() {
	for i := range r.Income {
		if r.Income[i].ID == "" {
			r.Income[i].ID = NewItemID()
		}
		if !r.Income[i].Frequency.Valid() {
			r.Income[i].Frequency = Monthly
		}
	}
	for i := range r.CreditCards {
		if r.CreditCards[i].ID == "" {
			r.CreditCards[i].ID = NewItemID()
		}
	}
	for i := range r.Loans {
		if r.Loans[i].ID == "" {
			r.Loans[i].ID = NewItemID()
		}
	}
	for i := range r.Assets {
		if r.Assets[i].ID == "" {
			r.Assets[i].ID = NewItemID()
		}
	}
	for i := range r.MonthlyBills {
		if r.MonthlyBills[i].ID == "" {
			r.MonthlyBills[i].ID = NewItemID()
		}
	}
}

// Clone returns a deep copy of the record.
func (r MonthlyRecord) Clone() MonthlyRecord {
	out := r
	out.Income = append([]IncomeSource(nil), r.Income...)
	out.CreditCards = append([]LiabilityAccount(nil), r.CreditCards...)
	out.Loans = append([]LiabilityAccount(nil), r.Loans...)
	out.Assets = append([]Asset(nil), r.Assets...)
	out.MonthlyBills = append([]NamedAmount(nil), r.MonthlyBills...)
	return out
}

// RecordSet maps YYYY-MM month keys to monthly records. Absence of a key
// means "no data recorded for that month", which is distinct from an
// all-zero record. The set is the unit of persistence: stores always read
// and write it whole.
type RecordSet map[string]MonthlyRecord

// Clone returns a deep copy of the set.
func (s RecordSet) Clone() RecordSet {
	out := make(RecordSet, len(s))
	for k, r := range s {
		out[k] = r.Clone()
	}
	return out
}

// Keys returns the month keys in chronological order.
func (s RecordSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
