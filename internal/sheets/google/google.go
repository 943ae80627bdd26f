package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"viaggi/internal/core"
	ports "viaggi/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client exports trip reports to a Google spreadsheet. Each export rewrites
// the report sheet from A1, so the sheet always mirrors the latest snapshot.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
}

var _ ports.ReportExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Report").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	reportSheet := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if reportSheet == "" {
		reportSheet = "Report"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   reportSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using service account
// credentials from the environment.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportTripReport clears the report sheet and rewrites it with the report.
func (c *Client) ExportTripReport(ctx context.Context, r core.TripReport) error {
	clearRange := c.reportSheet
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear report sheet: %w", err)
	}

	values := reportRows(r)
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, c.reportSheet+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	slog.InfoContext(ctx, "Trip report exported",
		"trip_id", r.TripID,
		"sheet", c.reportSheet,
		"rows", len(values))
	return nil
}

// reportRows renders the report as spreadsheet rows.
func reportRows(r core.TripReport) [][]interface{} {
	var rows [][]interface{}
	add := func(cells ...interface{}) {
		rows = append(rows, cells)
	}

	add(fmt.Sprintf("Report viaggio: %s", r.TripName), r.Currency, r.GeneratedAt.Format("2006-01-02 15:04"))
	add()

	if len(r.Balances) > 0 {
		add("Bilancio gruppo")
		for _, b := range r.Balances {
			add(b.Name, round2(b.Balance))
		}
		add()
	}

	sections := []struct {
		title  string
		totals []core.Total
	}{
		{"Spesa per categoria", r.ByCategory},
		{"Spesa giornaliera", r.ByDay},
		{"Spesa per paese", r.ByCountry},
	}
	for _, s := range sections {
		if len(s.totals) == 0 {
			continue
		}
		add(s.title)
		for _, tot := range s.totals {
			add(tot.Label, round2(tot.Amount))
		}
		add()
	}

	if r.HasBudget {
		add("Budget")
		add("Speso", round2(r.Budget.Spent))
		add("Percentuale", round2(r.Budget.RemainingPercent))
		add("Superato", strconv.FormatBool(r.Budget.Exceeded))
	}

	return rows
}

// round2 keeps the spreadsheet readable; computation upstream stays unrounded.
func round2(v float64) float64 {
	s, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return s
}
