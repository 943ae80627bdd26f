package core

// The balance engine is a pure function over an in-memory snapshot: no I/O,
// no mutation of its inputs, and no error path. Balances are always derived
// from the full expense history so they reflect the latest add, edit or
// delete without any incremental ledger state.

// SkipReason explains why a record contributed nothing to any balance.
type SkipReason string

const (
	SkipMissingPayer     SkipReason = "missing payer"
	SkipEmptySplit       SkipReason = "empty split set"
	SkipMissingRecipient SkipReason = "missing settlement recipient"
)

// SkippedRecord is a per-record data-quality diagnostic. Skipped records are
// reported separately from the balances so callers can surface warnings
// without breaking the zero-sum guarantee.
type SkippedRecord struct {
	Index     int
	ExpenseID string
	Reason    SkipReason
}

// BalanceReport couples the computed balances with the diagnostics collected
// while walking the expense list.
type BalanceReport struct {
	// Balances maps every member id to its signed net position. Positive
	// means the group owes the member, negative means the member owes the
	// group. Nil for solo trips, where balances are meaningless.
	Balances map[string]float64
	Skipped  []SkippedRecord
}

// SplitPolicy computes the share of a shared expense owed by each of the
// participants. Implementations must return one share per participant, in
// order. Only EvenSplit exists today; weighted splits can plug in here
// without touching the engine loop.
type SplitPolicy func(amount float64, participants []string) []float64

// EvenSplit divides the amount equally among all participants.
func EvenSplit(amount float64, participants []string) []float64 {
	shares := make([]float64, len(participants))
	if len(participants) == 0 {
		return shares
	}
	share := amount / float64(len(participants))
	for i := range shares {
		shares[i] = share
	}
	return shares
}

// ComputeBalances returns each member's net balance for the given snapshot.
// See ComputeBalanceReport for the full semantics.
func ComputeBalances(members []Member, expenses []Expense) map[string]float64 {
	return ComputeBalanceReport(members, expenses).Balances
}

// ComputeBalanceReport walks the expenses in input order and accumulates a
// signed balance per member, using the default even split.
//
// Settlements move credit from the recipient to the payer: the payer is owed
// less by the group afterwards, the recipient has received money. Shared
// expenses credit the payer with the full amount and debit every participant
// with its share. Records that cannot be interpreted (no payer, no valid
// participants, no settlement recipient) are skipped and reported, never
// rejected. Split entries referencing ids outside the member list are
// silently dropped.
//
// For any well-formed input the balances sum to zero up to floating-point
// rounding; summation order does not change the result beyond that.
func ComputeBalanceReport(members []Member, expenses []Expense) BalanceReport {
	return ComputeBalanceReportWith(members, expenses, EvenSplit)
}

// ComputeBalanceReportWith is ComputeBalanceReport with a custom split policy.
func ComputeBalanceReportWith(members []Member, expenses []Expense, split SplitPolicy) BalanceReport {
	// Balances make no sense for a solo trip.
	if len(members) <= 1 {
		return BalanceReport{}
	}

	known := make(map[string]bool, len(members))
	acc := make(map[string]float64, len(members))
	for _, m := range members {
		known[m.ID] = true
		acc[m.ID] = 0
	}

	var skipped []SkippedRecord

	for i, e := range expenses {
		if e.IsSettlement() {
			recipient := e.Recipient()
			switch {
			case e.PaidBy == "":
				skipped = append(skipped, SkippedRecord{Index: i, ExpenseID: e.ID, Reason: SkipMissingPayer})
			case recipient == "":
				skipped = append(skipped, SkippedRecord{Index: i, ExpenseID: e.ID, Reason: SkipMissingRecipient})
			default:
				acc[e.PaidBy] += e.Amount
				acc[recipient] -= e.Amount
			}
			continue
		}

		if e.PaidBy == "" {
			skipped = append(skipped, SkippedRecord{Index: i, ExpenseID: e.ID, Reason: SkipMissingPayer})
			continue
		}
		participants := make([]string, 0, len(e.SplitBetween))
		for _, id := range e.SplitBetween {
			if known[id] {
				participants = append(participants, id)
			}
		}
		if len(participants) == 0 {
			skipped = append(skipped, SkippedRecord{Index: i, ExpenseID: e.ID, Reason: SkipEmptySplit})
			continue
		}

		acc[e.PaidBy] += e.Amount
		for j, share := range split(e.Amount, participants) {
			acc[participants[j]] -= share
		}
	}

	// Credits accrued to dangling payer or settlement ids live only in the
	// accumulator; the result carries the original member ids and nothing
	// else, matching the display contract.
	balances := make(map[string]float64, len(members))
	for _, m := range members {
		balances[m.ID] = acc[m.ID]
	}

	return BalanceReport{Balances: balances, Skipped: skipped}
}
