package core

import (
	"testing"
	"time"
)

var testDate = time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC)

func TestKindForCategory(t *testing.T) {
	if KindForCategory("Cibo") != KindShared {
		t.Fatalf("regular category must map to KindShared")
	}
	if KindForCategory(AdjustmentCategory) != KindSettlement {
		t.Fatalf("adjustment category must map to KindSettlement")
	}
	// Kind is decided by exact value, not by substring or case.
	if KindForCategory("saldo") != KindShared {
		t.Fatalf("category matching is byte-for-byte")
	}
}

func TestNewSettlement(t *testing.T) {
	s := NewSettlement("m1", "m2", 25, testDate)
	if !s.IsSettlement() {
		t.Fatalf("expected settlement kind")
	}
	if s.Category != AdjustmentCategory {
		t.Fatalf("expected category %q, got %q", AdjustmentCategory, s.Category)
	}
	if s.Recipient() != "m2" {
		t.Fatalf("expected recipient m2, got %q", s.Recipient())
	}
}

func TestRecipient(t *testing.T) {
	shared := NewSharedExpense("cena", 30, "Cibo", "m1", []string{"m1", "m2"}, testDate, "")
	if shared.Recipient() != "" {
		t.Fatalf("shared expense has no recipient")
	}
	broken := Expense{Kind: KindSettlement, PaidBy: "m1", Amount: 10}
	if broken.Recipient() != "" {
		t.Fatalf("settlement without split set has no recipient")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := NewSharedExpense("pranzo", 12.5, "Cibo", "m1", []string{"m1", "m2"}, testDate, "Italia")
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid expense, got %v", err)
	}
	goodSettlement := NewSettlement("m1", "m2", 10, testDate)
	if err := goodSettlement.Validate(); err != nil {
		t.Fatalf("expected valid settlement, got %v", err)
	}

	cases := []struct {
		name string
		e    Expense
		want error
	}{
		{"zero amount", NewSharedExpense("a", 0, "Cibo", "m1", []string{"m1"}, testDate, ""), ErrInvalidAmount},
		{"negative amount", NewSharedExpense("a", -3, "Cibo", "m1", []string{"m1"}, testDate, ""), ErrInvalidAmount},
		{"zero date", NewSharedExpense("a", 1, "Cibo", "m1", []string{"m1"}, time.Time{}, ""), ErrZeroDate},
		{"missing payer", NewSharedExpense("a", 1, "Cibo", "", []string{"m1"}, testDate, ""), ErrMissingPayer},
		{"empty description", NewSharedExpense("", 1, "Cibo", "m1", []string{"m1"}, testDate, ""), ErrEmptyDescription},
		{"empty category", NewSharedExpense("a", 1, "", "m1", []string{"m1"}, testDate, ""), ErrEmptyCategory},
		{"empty split", NewSharedExpense("a", 1, "Cibo", "m1", nil, testDate, ""), ErrEmptySplit},
		{"settlement without recipient", NewSettlement("m1", "", 1, testDate), ErrMissingRecipient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.e.Validate(); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTripValidate(t *testing.T) {
	good := Trip{Name: "Spagna 2025", Currency: "EUR", Budget: 1500}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid trip, got %v", err)
	}
	bads := []Trip{
		{Name: "", Currency: "EUR"},
		{Name: "x", Currency: ""},
		{Name: "x", Currency: "EUR", Budget: -1},
	}
	for i, tr := range bads {
		if err := tr.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTripHasMember(t *testing.T) {
	tr := Trip{Members: []Member{{ID: "m1", Name: "Anna"}, {ID: "m2", Name: "Bruno"}}}
	if !tr.HasMember("m2") {
		t.Fatalf("expected m2 to be a member")
	}
	if tr.HasMember("m9") {
		t.Fatalf("m9 is not a member")
	}
}
