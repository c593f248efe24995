// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fintrack/fintrack/internal/domain/advice"
	"github.com/fintrack/fintrack/internal/domain/calc"
	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/types"
)

// MonthsHandler serves the record set's month collection.
type MonthsHandler struct {
	deps     Dependencies
	provider advice.Provider
}

// NewMonthsHandler creates a new months handler.
func NewMonthsHandler(deps Dependencies, provider advice.Provider) *MonthsHandler {
	if provider == nil {
		provider = advice.NoopProvider{}
	}
	return &MonthsHandler{deps: deps, provider: provider}
}

type monthsResponse struct {
	Months  []string `json:"months"`
	HasData bool     `json:"hasData"`
}

// HandleMonths handles GET /months requests.
func (h *MonthsHandler) HandleMonths(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	set := h.deps.Snapshot()
	writeJSON(w, http.StatusOK, monthsResponse{Months: set.Keys(), HasData: len(set) > 0})
}

// HandleMonth handles GET/PUT /months/{key} and the GET
// /months/{key}/summary and /months/{key}/advice subresources.
func (h *MonthsHandler) HandleMonth(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/months/")
	key, rest, _ := strings.Cut(path, "/")
	if !types.ValidMonthKey(key) {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadMonthKey)
		return
	}

	switch {
	case rest == "summary" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, summarize(key, h.deps.Month(key)))
	case rest == "advice" && r.Method == http.MethodGet:
		h.handleAdvice(w, r, key)
	case rest == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Month(key))
	case rest == "" && r.Method == http.MethodPut:
		var rec model.MonthlyRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if err := h.deps.UpdateMonth(r.Context(), key, rec); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.deps.Month(key))
	default:
		http.NotFound(w, r)
	}
}

// monthSummary is the derived-metrics view of one month.
type monthSummary struct {
	Month            string  `json:"month"`
	NetWorth         float64 `json:"netWorth"`
	NetWorthDisplay  string  `json:"netWorthDisplay"`
	TotalAssets      float64 `json:"totalAssets"`
	TotalDebt        float64 `json:"totalDebt"`
	TotalBills       float64 `json:"totalBills"`
	MonthlyIncome    float64 `json:"monthlyIncome"`
	IncomeDisplay    string  `json:"incomeDisplay"`
	Utilization      float64 `json:"utilization"`
	UtilizationLevel string  `json:"utilizationLevel"`
	DTI              float64 `json:"dti"`
	DTIDisplay       string  `json:"dtiDisplay"`
	DTILevel         string  `json:"dtiLevel"`
}

func summarize(key string, rec model.MonthlyRecord) monthSummary {
	netWorth := calc.NetWorth(rec)
	income := calc.NormalizedMonthlyIncome(rec.Income)
	util := calc.OverallUtilization(rec)
	dti := calc.DebtToIncome(rec)
	return monthSummary{
		Month:            key,
		NetWorth:         netWorth,
		NetWorthDisplay:  calc.FormatCurrency(netWorth),
		TotalAssets:      calc.TotalAssets(rec),
		TotalDebt:        calc.TotalDebt(rec),
		TotalBills:       calc.TotalBills(rec),
		MonthlyIncome:    income,
		IncomeDisplay:    calc.FormatCurrency(income),
		Utilization:      util,
		UtilizationLevel: string(calc.ClassifyUtilization(util)),
		DTI:              dti,
		DTIDisplay:       calc.FormatPercent(dti),
		DTILevel:         string(calc.ClassifyDTI(dti)),
	}
}

type adviceResponse struct {
	Aggregates advice.Aggregates `json:"aggregates"`
	Advice     []advice.Advice   `json:"advice"`
}

// handleAdvice hands the month's derived aggregates to the advice provider.
// Only derived numbers cross this boundary, and a failing provider degrades
// to an empty list rather than an error response.
func (h *MonthsHandler) handleAdvice(w http.ResponseWriter, r *http.Request, key string) {
	agg := h.deps.Aggregates(key)
	items, err := h.provider.Advise(r.Context(), agg)
	if err != nil || items == nil {
		items = []advice.Advice{}
	}
	writeJSON(w, http.StatusOK, adviceResponse{Aggregates: agg, Advice: items})
}
