package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"viaggi/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "viaggi.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTrip() core.Trip {
	return core.Trip{
		ID:       "trip-1",
		Name:     "Spagna 2025",
		Currency: "EUR",
		Budget:   1500,
		Members: []core.Member{
			{ID: "m1", Name: "Anna"},
			{ID: "m2", Name: "Bruno"},
		},
	}
}

func TestCreateAndGetTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateTrip(ctx, testTrip()); err != nil {
		t.Fatalf("create trip: %v", err)
	}

	got, err := repo.GetTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	if got.Name != "Spagna 2025" || got.Currency != "EUR" || got.Budget != 1500 {
		t.Fatalf("unexpected trip: %+v", got)
	}
	if len(got.Members) != 2 || got.Members[0].ID != "m1" || got.Members[1].ID != "m2" {
		t.Fatalf("expected members in insertion order, got %+v", got.Members)
	}
	if len(got.Expenses) != 0 {
		t.Fatalf("expected no expenses, got %d", len(got.Expenses))
	}
}

func TestGetTripNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetTrip(context.Background(), "ghost"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.CreateTrip(ctx, testTrip()); err != nil {
		t.Fatalf("create trip: %v", err)
	}

	date := time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)
	e := core.NewSharedExpense("paella", 36.5, "Cibo", "m1", []string{"m1", "m2"}, date, "Spagna")
	e.ID = "e1"
	if err := repo.CreateExpense(ctx, "trip-1", e); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	s := core.NewSettlement("m2", "m1", 18.25, date)
	s.ID = "e2"
	if err := repo.CreateExpense(ctx, "trip-1", s); err != nil {
		t.Fatalf("create settlement: %v", err)
	}

	got, err := repo.GetTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	if len(got.Expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(got.Expenses))
	}

	first := got.Expenses[0]
	if first.ID != "e1" || first.Amount != 36.5 || first.Category != "Cibo" || first.Country != "Spagna" {
		t.Fatalf("unexpected expense: %+v", first)
	}
	if first.Kind != core.KindShared {
		t.Fatalf("expected shared kind after decode")
	}
	if len(first.SplitBetween) != 2 || first.SplitBetween[0] != "m1" {
		t.Fatalf("unexpected split set: %v", first.SplitBetween)
	}
	if !first.Date.Equal(date) {
		t.Fatalf("expected date %v, got %v", date, first.Date)
	}

	second := got.Expenses[1]
	if !second.IsSettlement() || second.Recipient() != "m1" {
		t.Fatalf("expected settlement to m1 after decode, got %+v", second)
	}
}

func TestSoftDeleteExpense(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.CreateTrip(ctx, testTrip()); err != nil {
		t.Fatalf("create trip: %v", err)
	}

	e := core.NewSharedExpense("taxi", 20, "Trasporti", "m1", []string{"m1", "m2"}, time.Now().UTC(), "")
	e.ID = "e1"
	if err := repo.CreateExpense(ctx, "trip-1", e); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if err := repo.SoftDeleteExpense(ctx, "trip-1", "e1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	got, err := repo.GetTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	if len(got.Expenses) != 0 {
		t.Fatalf("expected deleted expense to be excluded, got %d", len(got.Expenses))
	}

	// Deleting twice is a not-found.
	if err := repo.SoftDeleteExpense(ctx, "trip-1", "e1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestMembers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.CreateTrip(ctx, testTrip()); err != nil {
		t.Fatalf("create trip: %v", err)
	}

	if err := repo.AddMember(ctx, "trip-1", core.Member{ID: "m3", Name: "Carla"}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	got, _ := repo.GetTrip(ctx, "trip-1")
	if len(got.Members) != 3 || got.Members[2].ID != "m3" {
		t.Fatalf("expected m3 appended, got %+v", got.Members)
	}

	if err := repo.RemoveMember(ctx, "trip-1", "m2"); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	got, _ = repo.GetTrip(ctx, "trip-1")
	if len(got.Members) != 2 || got.Members[0].ID != "m1" || got.Members[1].ID != "m3" {
		t.Fatalf("expected [m1 m3], got %+v", got.Members)
	}

	if err := repo.AddMember(ctx, "ghost", core.Member{ID: "mx", Name: "X"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown trip, got %v", err)
	}
	if err := repo.RemoveMember(ctx, "trip-1", "ghost"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown member, got %v", err)
	}
}

func TestExportBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.CreateTrip(ctx, testTrip()); err != nil {
		t.Fatalf("create trip: %v", err)
	}

	// A fresh trip has no pending export work.
	pending, err := repo.GetPendingExportTrips(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending trips, got %v", pending)
	}

	e := core.NewSharedExpense("cena", 30, "Cibo", "m1", []string{"m1", "m2"}, time.Now().UTC(), "")
	e.ID = "e1"
	if err := repo.CreateExpense(ctx, "trip-1", e); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	pending, err = repo.GetPendingExportTrips(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].TripID != "trip-1" || pending[0].Version != 1 {
		t.Fatalf("expected trip-1 at version 1 pending, got %v", pending)
	}

	if err := repo.MarkExported(ctx, "trip-1", pending[0].Version); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	pending, _ = repo.GetPendingExportTrips(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending trips after export, got %v", pending)
	}

	// An older export must not move the counter backwards.
	if err := repo.SoftDeleteExpense(ctx, "trip-1", "e1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	v, err := repo.TripVersion(ctx, "trip-1")
	if err != nil {
		t.Fatalf("trip version: %v", err)
	}
	if err := repo.MarkExported(ctx, "trip-1", v-1); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	pending, _ = repo.GetPendingExportTrips(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected trip still pending after stale export, got %v", pending)
	}
}
