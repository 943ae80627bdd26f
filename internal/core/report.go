package core

import "time"

// MemberBalance pairs a member with its net position, in roster order, so
// report consumers do not depend on map iteration order.
type MemberBalance struct {
	MemberID string
	Name     string
	Balance  float64
}

// TripReport is the complete derived view of one trip snapshot: balances plus
// every aggregate the reporting surfaces need. Like the engines it is built
// from, it is recomputed from the full history every time.
type TripReport struct {
	TripID      string
	TripName    string
	Currency    string
	Balances    []MemberBalance
	Skipped     []SkippedRecord
	ByCategory  []Total
	ByDay       []Total
	ByCountry   []Total
	Budget      BudgetProgress
	HasBudget   bool
	GeneratedAt time.Time
}

// BuildTripReport runs both engines over the snapshot and assembles the
// report. Solo trips get an empty balance section but keep their aggregates.
func BuildTripReport(t Trip) TripReport {
	r := TripReport{
		TripID:      t.ID,
		TripName:    t.Name,
		Currency:    t.Currency,
		ByCategory:  AggregateBy(t.Expenses, DimensionCategory),
		ByDay:       AggregateBy(t.Expenses, DimensionDay),
		ByCountry:   AggregateBy(t.Expenses, DimensionCountry),
		GeneratedAt: time.Now().UTC(),
	}

	balances := ComputeBalanceReport(t.Members, t.Expenses)
	r.Skipped = balances.Skipped
	if balances.Balances != nil {
		r.Balances = make([]MemberBalance, 0, len(t.Members))
		for _, m := range t.Members {
			r.Balances = append(r.Balances, MemberBalance{
				MemberID: m.ID,
				Name:     m.Name,
				Balance:  balances.Balances[m.ID],
			})
		}
	}

	r.Budget, r.HasBudget = ComputeBudgetProgress(t.Expenses, t.Budget)
	return r
}
