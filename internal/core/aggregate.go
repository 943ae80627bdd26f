package core

import "sort"

// Dimension selects the grouping key for chart aggregation.
type Dimension string

const (
	DimensionCategory Dimension = "category"
	DimensionDay      Dimension = "day"
	DimensionCountry  Dimension = "country"
)

// dayLayout truncates expense timestamps to calendar days in the timestamp's
// own location. The ISO form also sorts chronologically as a plain string.
const dayLayout = "2006-01-02"

// Total is one label/value pair of an aggregation, ready for charting.
type Total struct {
	Label  string
	Amount float64
}

// BudgetProgress is the spend-vs-budget record. RemainingPercent is the share
// of the budget consumed, clamped to 100 even when overspent; the field name
// is the host application's wire contract.
type BudgetProgress struct {
	Spent            float64 `json:"spent"`
	RemainingPercent float64 `json:"remainingPercent"`
	Exceeded         bool    `json:"exceeded"`
}

// AggregateBy groups non-settlement expenses along the given dimension and
// sums their amounts. Settlements are transfers between members, not spend,
// and never show up in any aggregate.
//
// Label ordering differs per dimension on purpose: category and country keep
// first-seen (insertion) order, days are sorted chronologically. Expenses
// without a country are left out of the country view only. An unknown
// dimension yields an empty result so callers can probe availability.
func AggregateBy(expenses []Expense, dim Dimension) []Total {
	switch dim {
	case DimensionCategory:
		return groupBy(expenses, func(e Expense) (string, bool) {
			return e.Category, true
		})
	case DimensionCountry:
		return groupBy(expenses, func(e Expense) (string, bool) {
			return e.Country, e.Country != ""
		})
	case DimensionDay:
		totals := groupBy(expenses, func(e Expense) (string, bool) {
			return e.Date.Format(dayLayout), true
		})
		sort.SliceStable(totals, func(i, j int) bool {
			return totals[i].Label < totals[j].Label
		})
		return totals
	default:
		return nil
	}
}

// groupBy sums amounts per label in first-seen order, skipping settlements
// and records the key function rejects.
func groupBy(expenses []Expense, key func(Expense) (string, bool)) []Total {
	index := make(map[string]int)
	var totals []Total
	for _, e := range expenses {
		if e.IsSettlement() {
			continue
		}
		label, ok := key(e)
		if !ok {
			continue
		}
		if i, seen := index[label]; seen {
			totals[i].Amount += e.Amount
			continue
		}
		index[label] = len(totals)
		totals = append(totals, Total{Label: label, Amount: e.Amount})
	}
	return totals
}

// ComputeBudgetProgress sums non-settlement spend against the budget ceiling.
// A zero or negative budget means no budget is set and the whole computation
// is a no-op; the second return value reports whether there is progress to
// show at all.
func ComputeBudgetProgress(expenses []Expense, budget float64) (BudgetProgress, bool) {
	if budget <= 0 {
		return BudgetProgress{}, false
	}

	var spent float64
	for _, e := range expenses {
		if e.IsSettlement() {
			continue
		}
		spent += e.Amount
	}

	percent := spent / budget * 100
	if percent > 100 {
		percent = 100
	}

	return BudgetProgress{
		Spent:            spent,
		RemainingPercent: percent,
		Exceeded:         spent >= budget,
	}, true
}
