package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"viaggi/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a trip or expense does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is how timestamps are stored; RFC3339 keeps them sortable as text.
const timeLayout = time.RFC3339

// SQLiteRepository persists trips, members and expenses. Reads always return a
// fully materialized snapshot; the computation engines never touch the
// database themselves.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTrip inserts a trip together with its initial members.
func (r *SQLiteRepository) CreateTrip(ctx context.Context, t core.Trip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trips (id, name, currency, budget) VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.Currency, t.Budget)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}

	for i, m := range t.Members {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO members (id, trip_id, name, position) VALUES (?, ?, ?, ?)`,
			m.ID, t.ID, m.Name, i)
		if err != nil {
			return fmt.Errorf("insert member %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trip: %w", err)
	}

	slog.InfoContext(ctx, "Trip created", "trip_id", t.ID, "name", t.Name, "members", len(t.Members))
	return nil
}

// GetTrip loads the full trip snapshot: members in their stored order and all
// live expenses in insertion order.
func (r *SQLiteRepository) GetTrip(ctx context.Context, id string) (core.Trip, error) {
	var t core.Trip
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, currency, budget FROM trips WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Currency, &t.Budget)
	if err == sql.ErrNoRows {
		return core.Trip{}, ErrNotFound
	}
	if err != nil {
		return core.Trip{}, fmt.Errorf("select trip: %w", err)
	}

	if t.Members, err = r.tripMembers(ctx, id); err != nil {
		return core.Trip{}, err
	}
	if t.Expenses, err = r.tripExpenses(ctx, id); err != nil {
		return core.Trip{}, err
	}
	return t, nil
}

func (r *SQLiteRepository) tripMembers(ctx context.Context, tripID string) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM members WHERE trip_id = ? ORDER BY position`, tripID)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *SQLiteRepository) tripExpenses(ctx context.Context, tripID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount, category, paid_by, split_between, spent_at, country
		 FROM expenses WHERE trip_id = ? AND deleted_at IS NULL ORDER BY created_at, rowid`, tripID)
	if err != nil {
		return nil, fmt.Errorf("select expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e       core.Expense
			split   string
			spentAt string
		)
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.Category, &e.PaidBy, &split, &spentAt, &e.Country); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if err := json.Unmarshal([]byte(split), &e.SplitBetween); err != nil {
			return nil, fmt.Errorf("decode split set for expense %s: %w", e.ID, err)
		}
		if e.Date, err = time.Parse(timeLayout, spentAt); err != nil {
			return nil, fmt.Errorf("parse date for expense %s: %w", e.ID, err)
		}
		// The kind is fixed at decode time so downstream code never needs to
		// compare category strings.
		e.Kind = core.KindForCategory(e.Category)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// AddMember appends a member at the end of the trip's member list.
func (r *SQLiteRepository) AddMember(ctx context.Context, tripID string, m core.Member) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, trip_id, name, position)
		 SELECT ?, id, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM members WHERE trip_id = ?)
		 FROM trips WHERE id = ?`,
		m.ID, m.Name, tripID, tripID)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return r.bumpVersion(ctx, tripID)
}

// RemoveMember deletes a member from the trip roster. Historical expenses
// referencing the member stay untouched; the balance engine excludes the
// dangling references on its own.
func (r *SQLiteRepository) RemoveMember(ctx context.Context, tripID, memberID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM members WHERE trip_id = ? AND id = ?`, tripID, memberID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return r.bumpVersion(ctx, tripID)
}

// CreateExpense appends an expense record to the trip's history.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, tripID string, e core.Expense) error {
	split, err := json.Marshal(e.SplitBetween)
	if err != nil {
		return fmt.Errorf("encode split set: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, trip_id, description, amount, category, paid_by, split_between, spent_at, country)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, tripID, e.Description, e.Amount, e.Category, e.PaidBy, string(split),
		e.Date.Format(timeLayout), e.Country)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"trip_id", tripID,
		"expense_id", e.ID,
		"amount", e.Amount,
		"category", e.Category)

	return r.bumpVersion(ctx, tripID)
}

// SoftDeleteExpense marks an expense deleted without losing the record.
func (r *SQLiteRepository) SoftDeleteExpense(ctx context.Context, tripID, expenseID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = ? WHERE trip_id = ? AND id = ? AND deleted_at IS NULL`,
		time.Now().UTC().Format(timeLayout), tripID, expenseID)
	if err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return r.bumpVersion(ctx, tripID)
}

// bumpVersion marks the trip as changed since its last export.
func (r *SQLiteRepository) bumpVersion(ctx context.Context, tripID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE trips SET version = version + 1 WHERE id = ?`, tripID)
	if err != nil {
		return fmt.Errorf("bump trip version: %w", err)
	}
	return nil
}

// TripVersion returns the trip's current change counter.
func (r *SQLiteRepository) TripVersion(ctx context.Context, tripID string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM trips WHERE id = ?`, tripID).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select trip version: %w", err)
	}
	return v, nil
}

// PendingExportTrip identifies a trip whose report export lags its data.
type PendingExportTrip struct {
	TripID  string
	Version int64
}

// GetPendingExportTrips returns trips changed since their last export. This
// backs the worker's periodic scan in case AMQP messages were lost.
func (r *SQLiteRepository) GetPendingExportTrips(ctx context.Context, limit int) ([]PendingExportTrip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version FROM trips WHERE version > exported_version ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending export trips: %w", err)
	}
	defer rows.Close()

	var pending []PendingExportTrip
	for rows.Next() {
		var p PendingExportTrip
		if err := rows.Scan(&p.TripID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending trip: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkExported records that the trip's report reflects the given version.
// A concurrent newer export wins; the counter never moves backwards.
func (r *SQLiteRepository) MarkExported(ctx context.Context, tripID string, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE trips SET exported_version = ? WHERE id = ? AND exported_version < ?`,
		version, tripID, version)
	if err != nil {
		return fmt.Errorf("mark trip exported: %w", err)
	}
	slog.InfoContext(ctx, "Trip marked as exported", "trip_id", tripID, "version", version)
	return nil
}
