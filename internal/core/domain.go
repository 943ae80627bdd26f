package core

import (
	"errors"
	"strings"
	"time"
)

// AdjustmentCategory marks an expense record as a direct settlement between
// two members instead of a shared cost. The value is a fixed contract shared
// with every client that writes expenses; it must never be localized or
// renamed without migrating stored data.
const AdjustmentCategory = "Saldo"

// DefaultCategories seeds new trips with the standard spending categories.
var DefaultCategories = []string{
	"Alloggio",
	"Trasporti",
	"Cibo",
	"Attività",
	"Shopping",
	"Varie",
}

// ExpenseKind tells the engines how to interpret a record. It is decided once
// when the expense is constructed or decoded, so the computation loops never
// re-inspect category strings.
type ExpenseKind int

const (
	KindShared ExpenseKind = iota
	KindSettlement
)

// KindForCategory maps a stored category value to its kind.
func KindForCategory(category string) ExpenseKind {
	if category == AdjustmentCategory {
		return KindSettlement
	}
	return KindShared
}

type (
	// Member is an identity participating in a trip.
	Member struct {
		ID   string
		Name string
	}

	// Expense is a single financial event inside a trip.
	//
	// For a shared expense SplitBetween lists the members sharing the cost.
	// For a settlement the first element of SplitBetween is the recipient of
	// the repayment and the rest is ignored.
	Expense struct {
		ID           string
		Description  string
		Amount       float64
		Category     string
		Kind         ExpenseKind
		PaidBy       string
		SplitBetween []string
		Date         time.Time
		Country      string
	}

	// Trip owns its members and expenses. Budget is optional (zero means no
	// budget tracking); Currency is a display unit only, all amounts within a
	// trip are assumed to be in that single currency.
	Trip struct {
		ID       string
		Name     string
		Currency string
		Budget   float64
		Members  []Member
		Expenses []Expense
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrMissingPayer     = errors.New("missing payer")
	ErrMissingRecipient = errors.New("missing settlement recipient")
	ErrEmptySplit       = errors.New("empty split set")
	ErrZeroDate         = errors.New("date cannot be zero")
)

// NewSharedExpense builds a shared expense with its kind fixed up front.
func NewSharedExpense(description string, amount float64, category, paidBy string, splitBetween []string, date time.Time, country string) Expense {
	return Expense{
		Description:  description,
		Amount:       amount,
		Category:     category,
		Kind:         KindForCategory(category),
		PaidBy:       paidBy,
		SplitBetween: splitBetween,
		Date:         date,
		Country:      country,
	}
}

// NewSettlement builds a settlement record: payer repaid recipient directly.
func NewSettlement(payer, recipient string, amount float64, date time.Time) Expense {
	return Expense{
		Description:  "Saldo debito",
		Amount:       amount,
		Category:     AdjustmentCategory,
		Kind:         KindSettlement,
		PaidBy:       payer,
		SplitBetween: []string{recipient},
		Date:         date,
	}
}

// IsSettlement reports whether the record is a member-to-member repayment.
func (e Expense) IsSettlement() bool {
	return e.Kind == KindSettlement
}

// Recipient returns the settlement recipient, or "" for shared expenses and
// malformed settlements.
func (e Expense) Recipient() string {
	if !e.IsSettlement() || len(e.SplitBetween) == 0 {
		return ""
	}
	return e.SplitBetween[0]
}

// Validate checks an expense before it is persisted. The computation engines
// deliberately never call this: malformed historical records are skipped
// during computation instead of rejected, so one corrupt row can never block
// the whole ledger.
func (e Expense) Validate() error {
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(e.PaidBy) == "" {
		return ErrMissingPayer
	}
	if e.IsSettlement() {
		if e.Recipient() == "" {
			return ErrMissingRecipient
		}
		return nil
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.SplitBetween) == 0 {
		return ErrEmptySplit
	}
	return nil
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("empty member name")
	}
	return nil
}

func (t Trip) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("empty trip name")
	}
	if strings.TrimSpace(t.Currency) == "" {
		return errors.New("empty currency")
	}
	if t.Budget < 0 {
		return errors.New("negative budget")
	}
	return nil
}

// HasMember reports whether id belongs to the trip's member list.
func (t Trip) HasMember(id string) bool {
	for _, m := range t.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}
