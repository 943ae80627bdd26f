package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"viaggi/internal/core"
)

var (
	// ErrUnknownMember is returned when an expense references a payer or
	// recipient outside the trip roster. New input is validated here so the
	// stored history stays clean; the engines still tolerate dangling ids in
	// old records.
	ErrUnknownMember = errors.New("unknown member")

	// ErrNoParticipants is returned when none of a shared expense's split
	// ids belong to the trip.
	ErrNoParticipants = errors.New("no valid participants")
)

// TripStore is the persistence the service needs. *storage.SQLiteRepository
// implements it; tests plug in an in-memory fake.
type TripStore interface {
	CreateTrip(ctx context.Context, t core.Trip) error
	GetTrip(ctx context.Context, id string) (core.Trip, error)
	AddMember(ctx context.Context, tripID string, m core.Member) error
	RemoveMember(ctx context.Context, tripID, memberID string) error
	CreateExpense(ctx context.Context, tripID string, e core.Expense) error
	SoftDeleteExpense(ctx context.Context, tripID, expenseID string) error
	TripVersion(ctx context.Context, tripID string) (int64, error)
	Close() error
}

// SyncPublisher notifies the export pipeline that a trip changed.
type SyncPublisher interface {
	PublishTripSync(ctx context.Context, tripID string, version int64) error
	Close() error
}

// TripService orchestrates trip operations: storage-first writes, then a
// best-effort sync publish. Reads load the full snapshot and hand it to the
// computation core; nothing derived is ever persisted.
type TripService struct {
	store     TripStore
	publisher SyncPublisher
}

func NewTripService(store TripStore, publisher SyncPublisher) *TripService {
	return &TripService{store: store, publisher: publisher}
}

// CreateTrip mints ids for the trip and its initial members and persists it.
func (s *TripService) CreateTrip(ctx context.Context, name, currency string, budget float64, memberNames []string) (core.Trip, error) {
	t := core.Trip{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		Currency: strings.TrimSpace(currency),
		Budget:   budget,
	}
	for _, n := range memberNames {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		t.Members = append(t.Members, core.Member{ID: uuid.NewString(), Name: n})
	}
	if err := t.Validate(); err != nil {
		return core.Trip{}, err
	}
	if err := s.store.CreateTrip(ctx, t); err != nil {
		return core.Trip{}, fmt.Errorf("create trip: %w", err)
	}
	return t, nil
}

// GetTrip returns the full trip snapshot.
func (s *TripService) GetTrip(ctx context.Context, id string) (core.Trip, error) {
	return s.store.GetTrip(ctx, id)
}

// AddMember appends a new member to the roster.
func (s *TripService) AddMember(ctx context.Context, tripID, name string) (core.Member, error) {
	m := core.Member{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}
	if err := s.store.AddMember(ctx, tripID, m); err != nil {
		return core.Member{}, fmt.Errorf("add member: %w", err)
	}
	s.publishSync(ctx, tripID)
	return m, nil
}

// RemoveMember drops a member from the roster. Expenses referencing the
// member stay in the history; the balance engine excludes them from then on.
func (s *TripService) RemoveMember(ctx context.Context, tripID, memberID string) error {
	if err := s.store.RemoveMember(ctx, tripID, memberID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	s.publishSync(ctx, tripID)
	return nil
}

// AddExpense validates a new expense against the current roster, mints its
// id and appends it to the trip history.
func (s *TripService) AddExpense(ctx context.Context, tripID string, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load trip: %w", err)
	}
	if !t.HasMember(e.PaidBy) {
		return core.Expense{}, ErrUnknownMember
	}
	if e.IsSettlement() {
		if !t.HasMember(e.Recipient()) {
			return core.Expense{}, ErrUnknownMember
		}
	} else {
		valid := 0
		for _, id := range e.SplitBetween {
			if t.HasMember(id) {
				valid++
			}
		}
		if valid == 0 {
			return core.Expense{}, ErrNoParticipants
		}
	}

	e.ID = uuid.NewString()
	if err := s.store.CreateExpense(ctx, tripID, e); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.publishSync(ctx, tripID)
	return e, nil
}

// DeleteExpense soft-deletes an expense from the trip history.
func (s *TripService) DeleteExpense(ctx context.Context, tripID, expenseID string) error {
	if err := s.store.SoftDeleteExpense(ctx, tripID, expenseID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publishSync(ctx, tripID)
	return nil
}

// Balances recomputes the trip's balances from the full expense history.
func (s *TripService) Balances(ctx context.Context, tripID string) (core.BalanceReport, error) {
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return core.BalanceReport{}, fmt.Errorf("load trip: %w", err)
	}
	return core.ComputeBalanceReport(t.Members, t.Expenses), nil
}

// Statistics aggregates the trip's spend along the given dimension.
func (s *TripService) Statistics(ctx context.Context, tripID string, dim core.Dimension) ([]core.Total, error) {
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load trip: %w", err)
	}
	return core.AggregateBy(t.Expenses, dim), nil
}

// BudgetProgress reports spend against the trip's budget ceiling. The second
// return value is false when the trip has no budget set.
func (s *TripService) BudgetProgress(ctx context.Context, tripID string) (core.BudgetProgress, bool, error) {
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return core.BudgetProgress{}, false, fmt.Errorf("load trip: %w", err)
	}
	progress, ok := core.ComputeBudgetProgress(t.Expenses, t.Budget)
	return progress, ok, nil
}

// publishSync emits a trip changed message. Failures are logged, never
// propagated: the write already succeeded and the worker's periodic scan
// picks up what the broker missed.
func (s *TripService) publishSync(ctx context.Context, tripID string) {
	if s.publisher == nil {
		return
	}
	version, err := s.store.TripVersion(ctx, tripID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read trip version for sync", "trip_id", tripID, "error", err)
		return
	}
	if err := s.publisher.PublishTripSync(ctx, tripID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish trip sync message", "trip_id", tripID, "version", version, "error", err)
	}
}

// Close closes storage and publisher connections.
func (s *TripService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close trip service: %v", errs)
	}
	return nil
}
