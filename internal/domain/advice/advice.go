// Package advice defines the boundary to the external advice-generation
// service. Only derived aggregate numbers cross this boundary; account names
// and identifiers never do.
package advice

import "context"

// Aggregates is the numeric summary of one month handed to a provider.
type Aggregates struct {
	MonthKey      string  `json:"monthKey"`
	NetWorth      float64 `json:"netWorth"`
	MonthlyIncome float64 `json:"monthlyIncome"`
	MonthlyBills  float64 `json:"monthlyBills"`
	DebtTotal     float64 `json:"debtTotal"`
	Utilization   float64 `json:"utilization"`
	DTI           float64 `json:"dti"`
	CreditScores  []int   `json:"creditScores"`
}

// Advice is one generated recommendation.
type Advice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ActionItem  string `json:"actionItem"`
}

// Provider generates advice from aggregates. The core never depends on a
// provider succeeding; a failed or absent provider degrades to no advice.
type Provider interface {
	Advise(ctx context.Context, agg Aggregates) ([]Advice, error)
}

// NoopProvider returns no advice. It is the default wiring when no external
// service is configured.
type NoopProvider struct{}

// Advise implements Provider.
func (NoopProvider) Advise(_ context.Context, _ Aggregates) ([]Advice, error) {
	return nil, nil
}
