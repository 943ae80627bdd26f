package sheets

import (
	"context"

	"viaggi/internal/core"
)

// ReportExporter is the outbound port for trip report exports. The worker
// hands it a fully built report; where it lands (a Google spreadsheet, an
// in-memory store for tests) is the adapter's business.
type ReportExporter interface {
	ExportTripReport(ctx context.Context, r core.TripReport) error
}
