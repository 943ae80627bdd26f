package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"viaggi/internal/core"
)

const maxBodyBytes = 1 << 20

type createTripRequest struct {
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Budget   float64  `json:"budget"`
	Members  []string `json:"members"`
}

type addMemberRequest struct {
	Name string `json:"name"`
}

type addExpenseRequest struct {
	Description  string   `json:"description"`
	Amount       float64  `json:"amount"`
	Category     string   `json:"category"`
	PaidBy       string   `json:"paidBy"`
	SplitBetween []string `json:"splitBetween"`
	Date         string   `json:"date"`
	Country      string   `json:"country"`
}

type addSettlementRequest struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

// decodeBody parses a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// A single JSON value per request.
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Currency) == "" || req.Budget < 0 {
		writeError(w, http.StatusUnprocessableEntity, "name and currency are required, budget must be non-negative")
		return
	}

	trip, err := s.trips.CreateTrip(r.Context(), req.Name, req.Currency, req.Budget, req.Members)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderTrip(trip))
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.trips.GetTrip(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTrip(trip))
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")

	var req addMemberRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "empty member name")
		return
	}

	m, err := s.trips.AddMember(r.Context(), tripID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateTrip(tripID)
	writeJSON(w, http.StatusCreated, renderMember(m))
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")
	if err := s.trips.RemoveMember(r.Context(), tripID, r.PathValue("memberID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateTrip(tripID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")

	var req addExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date (use YYYY-MM-DD or RFC 3339)")
		return
	}

	e := core.NewSharedExpense(
		strings.TrimSpace(req.Description),
		req.Amount,
		strings.TrimSpace(req.Category),
		strings.TrimSpace(req.PaidBy),
		req.SplitBetween,
		date,
		strings.TrimSpace(req.Country),
	)
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.trips.AddExpense(r.Context(), tripID, e)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateTrip(tripID)
	writeJSON(w, http.StatusCreated, renderExpense(created))
}

func (s *Server) handleAddSettlement(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")

	var req addSettlementRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date (use YYYY-MM-DD or RFC 3339)")
		return
	}

	settlement := core.NewSettlement(strings.TrimSpace(req.From), strings.TrimSpace(req.To), req.Amount, date)
	if err := settlement.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.trips.AddExpense(r.Context(), tripID, settlement)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateTrip(tripID)
	writeJSON(w, http.StatusCreated, renderExpense(created))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")
	if err := s.trips.DeleteExpense(r.Context(), tripID, r.PathValue("expenseID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateTrip(tripID)
	w.WriteHeader(http.StatusNoContent)
}

type balancesResponse struct {
	Balances map[string]float64 `json:"balances"`
	Skipped  []skippedJSON      `json:"skipped,omitempty"`
}

type skippedJSON struct {
	Index     int    `json:"index"`
	ExpenseID string `json:"expenseId,omitempty"`
	Reason    string `json:"reason"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")

	if body, ok := s.balancesCache.Get(tripID); ok {
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	report, err := s.trips.Balances(r.Context(), tripID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := balancesResponse{Balances: report.Balances}
	if resp.Balances == nil {
		resp.Balances = map[string]float64{}
	}
	for _, rec := range report.Skipped {
		resp.Skipped = append(resp.Skipped, skippedJSON{
			Index:     rec.Index,
			ExpenseID: rec.ExpenseID,
			Reason:    string(rec.Reason),
		})
	}

	body, err := json.Marshal(resp)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.balancesCache.Set(tripID, body)
	writeRawJSON(w, http.StatusOK, body)
}

type statsResponse struct {
	By     string       `json:"by"`
	Totals []totalsJSON `json:"totals"`
}

type totalsJSON struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")

	by := strings.TrimSpace(r.URL.Query().Get("by"))
	if by == "" {
		by = string(core.DimensionCategory)
	}
	dim := core.Dimension(by)
	switch dim {
	case core.DimensionCategory, core.DimensionDay, core.DimensionCountry:
	default:
		writeError(w, http.StatusBadRequest, "unknown dimension (use category, day or country)")
		return
	}

	key := tripID + ":" + by
	if body, ok := s.statsCache.Get(key); ok {
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	totals, err := s.trips.Statistics(r.Context(), tripID, dim)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := statsResponse{By: by, Totals: make([]totalsJSON, 0, len(totals))}
	for _, t := range totals {
		resp.Totals = append(resp.Totals, totalsJSON{Label: t.Label, Amount: t.Amount})
	}

	body, err := json.Marshal(resp)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.statsCache.Set(key, body)
	writeRawJSON(w, http.StatusOK, body)
}

type budgetResponse struct {
	Configured       bool    `json:"configured"`
	Spent            float64 `json:"spent,omitempty"`
	RemainingPercent float64 `json:"remainingPercent,omitempty"`
	Exceeded         bool    `json:"exceeded,omitempty"`
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")

	if body, ok := s.budgetCache.Get(tripID); ok {
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	progress, configured, err := s.trips.BudgetProgress(r.Context(), tripID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := budgetResponse{Configured: configured}
	if configured {
		resp.Spent = progress.Spent
		resp.RemainingPercent = progress.RemainingPercent
		resp.Exceeded = progress.Exceeded
	}

	body, err := json.Marshal(resp)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.budgetCache.Set(tripID, body)
	writeRawJSON(w, http.StatusOK, body)
}
