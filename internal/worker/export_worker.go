package worker

import (
	"context"
	"fmt"
	"log/slog"

	"viaggi/internal/amqp"
	"viaggi/internal/core"
	"viaggi/internal/sheets"
	"viaggi/internal/storage"
)

// TripSource is the storage surface the worker reads from.
type TripSource interface {
	GetTrip(ctx context.Context, id string) (core.Trip, error)
	GetPendingExportTrips(ctx context.Context, limit int) ([]storage.PendingExportTrip, error)
	MarkExported(ctx context.Context, tripID string, version int64) error
}

// ExportWorker keeps the exported report in step with the trip ledger. Every
// message triggers a full reload and recomputation: the report is always
// derived from the current snapshot, never patched incrementally.
type ExportWorker struct {
	storage   TripSource
	exporter  sheets.ReportExporter
	batchSize int
}

func NewExportWorker(storage TripSource, exporter sheets.ReportExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single trip sync message from AMQP.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TripSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"trip_id", msg.TripID,
		"version", msg.Version)

	return w.exportTrip(ctx, msg.TripID, msg.Version)
}

// ProcessPendingTrips exports trips whose version is ahead of the last
// export. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingTrips(ctx context.Context) error {
	pending, err := w.storage.GetPendingExportTrips(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending trips: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending trips", "count", len(pending))

	for _, p := range pending {
		if err := w.exportTrip(ctx, p.TripID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending trip",
				"trip_id", p.TripID, "version", p.Version, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck exports everything left pending before the worker begins
// consuming, recovering from missed messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingExportTrips(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending trips for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending trips found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending trips on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, p := range pending {
		if err := w.exportTrip(ctx, p.TripID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to export trip during startup",
				"trip_id", p.TripID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)

	return nil
}

// exportTrip reloads the snapshot, recomputes the full report and hands it
// to the exporter. The exported version only ever moves forward, so a stale
// message arriving after a newer export is a harmless no-op bookkeeping-wise.
func (w *ExportWorker) exportTrip(ctx context.Context, tripID string, version int64) error {
	trip, err := w.storage.GetTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("load trip %s: %w", tripID, err)
	}

	report := core.BuildTripReport(trip)
	if err := w.exporter.ExportTripReport(ctx, report); err != nil {
		return fmt.Errorf("export report for trip %s: %w", tripID, err)
	}

	if err := w.storage.MarkExported(ctx, tripID, version); err != nil {
		// The export itself worked; only the bookkeeping failed. The pending
		// scan will retry, and a repeated export is idempotent.
		slog.ErrorContext(ctx, "Failed to mark trip as exported",
			"trip_id", tripID, "version", version, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Trip report exported",
		"trip_id", tripID,
		"version", version,
		"members", len(trip.Members),
		"expenses", len(trip.Expenses))

	return nil
}
