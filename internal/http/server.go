package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"viaggi/internal/cache"
	"viaggi/internal/core"
)

// TripService is what the API needs from the service layer.
// *services.TripService implements it; tests plug in a fake.
type TripService interface {
	CreateTrip(ctx context.Context, name, currency string, budget float64, memberNames []string) (core.Trip, error)
	GetTrip(ctx context.Context, id string) (core.Trip, error)
	AddMember(ctx context.Context, tripID, name string) (core.Member, error)
	RemoveMember(ctx context.Context, tripID, memberID string) error
	AddExpense(ctx context.Context, tripID string, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, tripID, expenseID string) error
	Balances(ctx context.Context, tripID string) (core.BalanceReport, error)
	Statistics(ctx context.Context, tripID string, dim core.Dimension) ([]core.Total, error)
	BudgetProgress(ctx context.Context, tripID string) (core.BudgetProgress, bool, error)
}

type Server struct {
	http.Server
	trips       TripService
	rateLimiter *rateLimiter

	// Rendered-response caches for the read endpoints. Balances and
	// aggregates are always recomputed from the full history; only the
	// serialized JSON is cached, and every mutation drops a trip's entries.
	balancesCache *cache.LRU[[]byte]
	statsCache    *cache.LRU[[]byte]
	budgetCache   *cache.LRU[[]byte]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and response caches, returning a
// ready-to-run http.Server.
func NewServer(addr string, trips TripService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		trips:            trips,
		rateLimiter:      newRateLimiter(),
		balancesCache:    cache.NewLRU[[]byte](200, 5*time.Minute),
		statsCache:       cache.NewLRU[[]byte](200, 5*time.Minute),
		budgetCache:      cache.NewLRU[[]byte](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /trips", s.wrap(s.handleCreateTrip))
	mux.HandleFunc("GET /trips/{id}", s.wrap(s.handleGetTrip))
	mux.HandleFunc("POST /trips/{id}/members", s.wrap(s.handleAddMember))
	mux.HandleFunc("DELETE /trips/{id}/members/{memberID}", s.wrap(s.handleRemoveMember))
	mux.HandleFunc("POST /trips/{id}/expenses", s.wrap(s.handleAddExpense))
	mux.HandleFunc("POST /trips/{id}/settlements", s.wrap(s.handleAddSettlement))
	mux.HandleFunc("DELETE /trips/{id}/expenses/{expenseID}", s.wrap(s.handleDeleteExpense))
	mux.HandleFunc("GET /trips/{id}/balances", s.wrap(s.handleBalances))
	mux.HandleFunc("GET /trips/{id}/stats", s.wrap(s.handleStats))
	mux.HandleFunc("GET /trips/{id}/budget", s.wrap(s.handleBudget))

	return s
}

// wrap adds security headers, rate limiting on mutations, and request
// logging around a handler.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateTrip drops every cached response for the trip. Called on every
// mutation so reads never serve stale derived data.
func (s *Server) invalidateTrip(tripID string) {
	s.balancesCache.Delete(tripID)
	s.budgetCache.Delete(tripID)
	for _, dim := range []core.Dimension{core.DimensionCategory, core.DimensionDay, core.DimensionCountry} {
		s.statsCache.Delete(tripID + ":" + string(dim))
	}
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.balancesCache.CleanExpired() +
				s.statsCache.CleanExpired() +
				s.budgetCache.CleanExpired()
			if cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
