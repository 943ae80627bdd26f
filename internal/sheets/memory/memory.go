package memory

import (
	"context"
	"sync"

	"viaggi/internal/core"
	ports "viaggi/internal/sheets"
)

// Store keeps the last exported report per trip. Used as the export backend
// in tests and when no spreadsheet is configured.
type Store struct {
	mu      sync.Mutex
	reports map[string]core.TripReport
	exports int
}

var _ ports.ReportExporter = (*Store)(nil)

func New() *Store {
	return &Store{reports: make(map[string]core.TripReport)}
}

// ExportTripReport records the report, replacing any previous one.
func (s *Store) ExportTripReport(_ context.Context, r core.TripReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.TripID] = r
	s.exports++
	return nil
}

// LastReport returns the most recently exported report for a trip.
func (s *Store) LastReport(tripID string) (core.TripReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[tripID]
	return r, ok
}

// ExportCount returns how many exports were performed in total.
func (s *Store) ExportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
