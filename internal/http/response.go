package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"viaggi/internal/core"
	"viaggi/internal/services"
	"viaggi/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeRawJSON writes a pre-rendered JSON body, used by the cached read paths.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service and domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrUnknownMember),
		errors.Is(err, services.ErrNoParticipants),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrMissingPayer),
		errors.Is(err, core.ErrMissingRecipient),
		errors.Is(err, core.ErrEmptySplit),
		errors.Is(err, core.ErrZeroDate):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type memberJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type expenseJSON struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Amount       float64  `json:"amount"`
	Category     string   `json:"category"`
	PaidBy       string   `json:"paidBy"`
	SplitBetween []string `json:"splitBetween"`
	Date         string   `json:"date"`
	Country      string   `json:"country,omitempty"`
	Settlement   bool     `json:"settlement"`
}

type tripJSON struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Currency string        `json:"currency"`
	Budget   float64       `json:"budget,omitempty"`
	Members  []memberJSON  `json:"members"`
	Expenses []expenseJSON `json:"expenses"`
}

func renderMember(m core.Member) memberJSON {
	return memberJSON{ID: m.ID, Name: m.Name}
}

func renderExpense(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:           e.ID,
		Description:  e.Description,
		Amount:       e.Amount,
		Category:     e.Category,
		PaidBy:       e.PaidBy,
		SplitBetween: e.SplitBetween,
		Date:         e.Date.Format(time.RFC3339),
		Country:      e.Country,
		Settlement:   e.IsSettlement(),
	}
}

func renderTrip(t core.Trip) tripJSON {
	out := tripJSON{
		ID:       t.ID,
		Name:     t.Name,
		Currency: t.Currency,
		Budget:   t.Budget,
		Members:  make([]memberJSON, 0, len(t.Members)),
		Expenses: make([]expenseJSON, 0, len(t.Expenses)),
	}
	for _, m := range t.Members {
		out.Members = append(out.Members, renderMember(m))
	}
	for _, e := range t.Expenses {
		out.Expenses = append(out.Expenses, renderExpense(e))
	}
	return out
}
