package google

import (
	"testing"
	"time"

	"viaggi/internal/core"
)

func TestReportRows(t *testing.T) {
	r := core.TripReport{
		TripID:   "t1",
		TripName: "Spagna 2025",
		Currency: "EUR",
		Balances: []core.MemberBalance{
			{MemberID: "m1", Name: "Anna", Balance: 20.004},
			{MemberID: "m2", Name: "Bruno", Balance: -20.004},
		},
		ByCategory:  []core.Total{{Label: "Cibo", Amount: 40}},
		ByDay:       []core.Total{{Label: "2025-06-01", Amount: 40}},
		Budget:      core.BudgetProgress{Spent: 40, RemainingPercent: 40, Exceeded: false},
		HasBudget:   true,
		GeneratedAt: time.Date(2025, 6, 14, 18, 0, 0, 0, time.UTC),
	}

	rows := reportRows(r)
	if len(rows) == 0 {
		t.Fatalf("expected rows")
	}

	header := rows[0]
	if header[0] != "Report viaggio: Spagna 2025" || header[1] != "EUR" {
		t.Fatalf("unexpected header row: %v", header)
	}

	var sections []string
	for _, row := range rows {
		if len(row) == 1 {
			if s, ok := row[0].(string); ok {
				sections = append(sections, s)
			}
		}
	}
	want := []string{"Bilancio gruppo", "Spesa per categoria", "Spesa giornaliera", "Budget"}
	if len(sections) != len(want) {
		t.Fatalf("expected sections %v, got %v", want, sections)
	}
	for i := range want {
		if sections[i] != want[i] {
			t.Fatalf("section %d: expected %q, got %q", i, want[i], sections[i])
		}
	}

	// Country section is omitted when empty.
	for _, row := range rows {
		if len(row) > 0 && row[0] == "Spesa per paese" {
			t.Fatalf("did not expect country section")
		}
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{20.004, 20.0},
		{1.23456, 1.23},
		{-3.14159, -3.14},
		{0, 0},
	}
	for _, tc := range cases {
		if got := round2(tc.in); got != tc.want {
			t.Errorf("round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
