// Package calc defines the pure derived-metric calculators. Every function
// is total and side-effect free over a monthly record; nil lists are treated
// as empty so records from older schema versions compute cleanly.
package calc

import (
	"github.com/fintrack/fintrack/internal/domain/model"
)

// Weeks-per-year constant used for income normalization.
const weeksPerYear = 52

// Risk classification thresholds. These are presentation policy but must be
// stable: views and advice both key off them.
const (
	UtilizationModerate = 30 // percent; above this is moderate risk
	UtilizationHigh     = 70 // percent; above this is high risk
	DTIStrong           = 36 // percent; at or below is strong
	DTIHigh             = 43 // percent; above is high risk
)

// Level is a coarse risk classification of a ratio metric.
type Level string

// Classification levels.
const (
	LevelHealthy  Level = "healthy"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelStrong   Level = "strong"
	LevelNeutral  Level = "neutral"
)

// TotalAssets sums asset values.
func TotalAssets(r model.MonthlyRecord) float64 {
	var sum float64
	for _, a := range r.Assets {
		sum += float64(a.Value)
	}
	return sum
}

// TotalDebt sums credit card and loan balances.
func TotalDebt(r model.MonthlyRecord) float64 {
	var sum float64
	for _, c := range r.CreditCards {
		sum += float64(c.Balance)
	}
	for _, l := range r.Loans {
		sum += float64(l.Balance)
	}
	return sum
}

// TotalBills sums the monthly bill amounts.
func TotalBills(r model.MonthlyRecord) float64 {
	var sum float64
	for _, b := range r.MonthlyBills {
		sum += float64(b.Amount)
	}
	return sum
}

// NetWorth is total assets minus total liabilities.
func NetWorth(r model.MonthlyRecord) float64 {
	return TotalAssets(r) - TotalDebt(r)
}

// Utilization is balance over limit as a percentage, 0 when the limit is 0.
func Utilization(balance, limit float64) float64 {
	if limit == 0 {
		return 0
	}
	return balance / limit * 100
}

// OverallUtilization aggregates all credit card balances and limits.
func OverallUtilization(r model.MonthlyRecord) float64 {
	var balance, limit float64
	for _, c := range r.CreditCards {
		balance += float64(c.Balance)
		limit += float64(c.Limit)
	}
	return Utilization(balance, limit)
}

// MonthlyEquivalent converts an amount at the given payout frequency to its
// monthly equivalent using a fixed 52-weeks-per-year calendar.
func MonthlyEquivalent(amount float64, f model.Frequency) float64 {
	switch f {
	case model.Weekly:
		return amount * weeksPerYear / 12
	case model.BiWeekly:
		return amount * (weeksPerYear / 2) / 12
	case model.TwiceMonthly:
		return amount * 2
	case model.Yearly:
		return amount / 12
	case model.Monthly:
		return amount
	default:
		return amount
	}
}

// NormalizedMonthlyIncome sums the monthly equivalents of all income sources.
func NormalizedMonthlyIncome(sources []model.IncomeSource) float64 {
	var sum float64
	for _, s := range sources {
		sum += MonthlyEquivalent(float64(s.Amount), s.Frequency)
	}
	return sum
}

// DTI is the debt-to-income ratio: total monthly bills over normalized
// monthly income as a percentage, 0 when income is 0.
func DTI(totalBills, monthlyIncome float64) float64 {
	if monthlyIncome == 0 {
		return 0
	}
	return totalBills / monthlyIncome * 100
}

// DebtToIncome computes DTI directly from a record.
func DebtToIncome(r model.MonthlyRecord) float64 {
	return DTI(TotalBills(r), NormalizedMonthlyIncome(r.Income))
}

// ClassifyUtilization buckets a utilization percentage.
func ClassifyUtilization(pct float64) Level {
	switch {
	case pct > UtilizationHigh:
		return LevelHigh
	case pct > UtilizationModerate:
		return LevelModerate
	default:
		return LevelHealthy
	}
}

// ClassifyDTI buckets a DTI percentage.
func ClassifyDTI(pct float64) Level {
	switch {
	case pct > DTIHigh:
		return LevelHigh
	case pct <= DTIStrong:
		return LevelStrong
	default:
		return LevelNeutral
	}
}
