// Package demo generates the starter record set seeded into first-login
// guest documents, so an anonymous session opens with populated views
// instead of an empty tracker.
package demo

import (
	"math/rand"
	"time"

	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/types"
)

// Constants for demo data generation ranges.
const (
	demoMonths        = 6
	salaryBase        = 4200.0
	salaryJitter      = 300.0
	sideIncomeBase    = 350.0
	sideIncomeJitter  = 150.0
	cardBalanceBase   = 1800.0
	cardBalanceJitter = 600.0
	loanBalanceStart  = 14500.0
	loanMonthlyPay    = 310.0
	savingsStart      = 8200.0
	savingsGrowth     = 420.0
	scoreBase         = 684
	scoreDrift        = 2
	demoSeed          = 7
)

// RecordSet builds a multi-month demo set ending at the month containing
// now. Line-item IDs are stable within a generated set but fresh per call.
func RecordSet(now time.Time) model.RecordSet {
	rng := rand.New(rand.NewSource(demoSeed))

	salaryID := model.NewItemID()
	sideID := model.NewItemID()
	visaID := model.NewItemID()
	autoLoanID := model.NewItemID()
	savingsID := model.NewItemID()
	carID := model.NewItemID()
	rentID := model.NewItemID()
	utilitiesID := model.NewItemID()

	set := make(model.RecordSet, demoMonths)
	for i := demoMonths - 1; i >= 0; i-- {
		month := now.AddDate(0, -i, 0)
		age := demoMonths - 1 - i // 0 = oldest

		rec := model.MonthlyRecord{
			Income: []model.IncomeSource{
				{ID: salaryID, Name: "Salary", Amount: jitter(rng, salaryBase, salaryJitter), Frequency: model.BiWeekly},
				{ID: sideID, Name: "Freelance", Amount: jitter(rng, sideIncomeBase, sideIncomeJitter), Frequency: model.Monthly},
			},
			CreditScores: model.CreditScores{
				Equifax:    model.Score(scoreBase + age*scoreDrift),
				TransUnion: model.Score(scoreBase - 5 + age*scoreDrift),
				Experian:   model.Score(scoreBase + 3 + age*scoreDrift),
				FICO8:      model.Score(scoreBase + 7 + age*scoreDrift),
				Vantage3:   model.Score(scoreBase - 9 + age*scoreDrift),
			},
			CreditCards: []model.LiabilityAccount{
				{ID: visaID, Name: "Visa Signature", Balance: jitter(rng, cardBalanceBase, cardBalanceJitter), Limit: 8000},
			},
			Loans: []model.LiabilityAccount{
				{ID: autoLoanID, Name: "Auto Loan", Balance: model.Amount(loanBalanceStart - float64(age)*loanMonthlyPay), Limit: 0},
			},
			Assets: []model.Asset{
				{ID: savingsID, Name: "Savings", Value: model.Amount(savingsStart + float64(age)*savingsGrowth)},
				{ID: carID, Name: "Car", Value: 16500},
			},
			MonthlyBills: []model.NamedAmount{
				{ID: rentID, Name: "Rent", Amount: 1450},
				{ID: utilitiesID, Name: "Utilities", Amount: jitter(rng, 180, 40)},
			},
		}
		set[types.MonthKey(month)] = rec
	}
	return set
}

func jitter(rng *rand.Rand, base, spread float64) model.Amount {
	return model.Amount(base + (rng.Float64()*2-1)*spread)
}
