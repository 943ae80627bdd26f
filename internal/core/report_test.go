package core

import (
	"testing"
)

func TestBuildTripReport(t *testing.T) {
	trip := Trip{
		ID:       "t1",
		Name:     "Spagna 2025",
		Currency: "EUR",
		Budget:   100,
		Members:  abc,
		Expenses: []Expense{
			NewSharedExpense("hotel", 90, "Alloggio", "A", []string{"A", "B", "C"}, day(1), "Spagna"),
			NewSharedExpense("tapas", 30, "Cibo", "B", []string{"A", "B", "C"}, day(2), "Spagna"),
			NewSettlement("B", "A", 30, day(2)),
		},
	}

	r := BuildTripReport(trip)

	if r.TripID != "t1" || r.TripName != "Spagna 2025" || r.Currency != "EUR" {
		t.Fatalf("unexpected header: %+v", r)
	}
	if r.GeneratedAt.IsZero() {
		t.Fatalf("expected generation timestamp")
	}

	// Balances come back in roster order.
	if len(r.Balances) != 3 {
		t.Fatalf("expected 3 balances, got %v", r.Balances)
	}
	// hotel: A=60 B=-30 C=-30; tapas: A=50 B=-10 C=-40; then B repays A 30.
	wantBalances := []MemberBalance{
		{MemberID: "A", Name: "Anna", Balance: 20},
		{MemberID: "B", Name: "Bruno", Balance: 20},
		{MemberID: "C", Name: "Carla", Balance: -40},
	}
	for i, want := range wantBalances {
		got := r.Balances[i]
		if got.MemberID != want.MemberID || got.Name != want.Name || !almostEqual(got.Balance, want.Balance) {
			t.Fatalf("balance %d: expected %+v, got %+v", i, want, got)
		}
	}

	if len(r.ByCategory) != 2 || r.ByCategory[0].Label != "Alloggio" || r.ByCategory[1].Label != "Cibo" {
		t.Fatalf("unexpected category totals: %v", r.ByCategory)
	}
	if len(r.ByDay) != 2 || r.ByDay[0].Label != "2025-06-01" {
		t.Fatalf("unexpected day totals: %v", r.ByDay)
	}
	if len(r.ByCountry) != 1 || !almostEqual(r.ByCountry[0].Amount, 120) {
		t.Fatalf("unexpected country totals: %v", r.ByCountry)
	}

	if !r.HasBudget || !almostEqual(r.Budget.Spent, 120) || !r.Budget.Exceeded {
		t.Fatalf("unexpected budget progress: %+v", r.Budget)
	}
	if len(r.Skipped) != 0 {
		t.Fatalf("expected no skipped records, got %v", r.Skipped)
	}
}

func TestBuildTripReportSoloTrip(t *testing.T) {
	trip := Trip{
		ID:      "t1",
		Name:    "Solo",
		Members: []Member{{ID: "A", Name: "Anna"}},
		Expenses: []Expense{
			NewSharedExpense("hotel", 50, "Alloggio", "A", []string{"A"}, day(1), ""),
		},
	}
	r := BuildTripReport(trip)
	if r.Balances != nil {
		t.Fatalf("solo trip must have no balance section, got %v", r.Balances)
	}
	if len(r.ByCategory) != 1 {
		t.Fatalf("aggregates must still be computed: %v", r.ByCategory)
	}
	if r.HasBudget {
		t.Fatalf("no budget set, expected no progress")
	}
}
