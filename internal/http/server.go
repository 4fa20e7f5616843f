// Package http exposes the planning engine as a JSON API.
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

	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

type Server struct {
	http.Server
	store       store.Store
	planner     *services.PlannerService
	rateLimiter *rateLimiter

	// LRU caches for computed read views with eviction policy
	summaryCache  *cache.LRUCache[budget.Summary]
	upcomingCache *cache.LRUCache[[]services.UpcomingItem]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, st store.Store, planner *services.PlannerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:         st,
		planner:       planner,
		rateLimiter:   newRateLimiter(),
		summaryCache:  cache.NewLRUCache[budget.Summary](100, 5*time.Minute),
		upcomingCache: cache.NewLRUCache[[]services.UpcomingItem](50, time.Minute),
		cacheManager:  cache.NewManager(slog.Default()),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.upcomingCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/recurring", s.withSecurityHeaders(s.handleCreateRecurring))
	mux.HandleFunc("GET /api/recurring", s.withSecurityHeaders(s.handleListRecurring))
	mux.HandleFunc("GET /api/recurring/upcoming", s.withSecurityHeaders(s.handleUpcoming))
	mux.HandleFunc("GET /api/recurring/{id}", s.withSecurityHeaders(s.handleGetRecurring))
	mux.HandleFunc("PUT /api/recurring/{id}", s.withSecurityHeaders(s.handleUpdateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.withSecurityHeaders(s.handleDeleteRecurring))

	mux.HandleFunc("POST /api/debts", s.withSecurityHeaders(s.handleCreateDebt))
	mux.HandleFunc("GET /api/debts", s.withSecurityHeaders(s.handleListDebts))
	mux.HandleFunc("GET /api/debts/upcoming", s.withSecurityHeaders(s.handleDebtPayments))
	mux.HandleFunc("GET /api/debts/payoff-plan", s.withSecurityHeaders(s.handlePayoffPlan))
	mux.HandleFunc("GET /api/debts/payoff-compare", s.withSecurityHeaders(s.handlePayoffCompare))
	mux.HandleFunc("GET /api/debts/{id}", s.withSecurityHeaders(s.handleGetDebt))
	mux.HandleFunc("PUT /api/debts/{id}", s.withSecurityHeaders(s.handleUpdateDebt))
	mux.HandleFunc("DELETE /api/debts/{id}", s.withSecurityHeaders(s.handleDeleteDebt))

	mux.HandleFunc("POST /api/goals", s.withSecurityHeaders(s.handleCreateGoal))
	mux.HandleFunc("GET /api/goals", s.withSecurityHeaders(s.handleListGoals))
	mux.HandleFunc("PUT /api/goals/{id}", s.withSecurityHeaders(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withSecurityHeaders(s.handleDeleteGoal))

	mux.HandleFunc("GET /api/budget/summary", s.withSecurityHeaders(s.handleBudgetSummary))
	mux.HandleFunc("PUT /api/budget/allocations", s.withSecurityHeaders(s.handleUpsertAllocation))
	mux.HandleFunc("GET /api/budget/allocations", s.withSecurityHeaders(s.handleListAllocations))
	mux.HandleFunc("DELETE /api/budget/allocations/{id}", s.withSecurityHeaders(s.handleDeleteAllocation))

	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.withSecurityHeaders(s.handleListTransactions))

	mux.HandleFunc("GET /api/forecast", s.withSecurityHeaders(s.handleForecast))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Generate request ID for tracing
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Apply rate limiting to mutating requests
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Create a custom response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) summaryCacheKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// invalidateViews drops cached read views after any data change.
func (s *Server) invalidateViews(ctx context.Context, entity string, id int64, reason string) {
	s.summaryCache.Clear()
	s.upcomingCache.Clear()
	s.planner.NotifyChange(ctx, entity, id, reason)
}

func (s *Server) getSummary(ctx context.Context, year int, month time.Month) (budget.Summary, error) {
	key := s.summaryCacheKey(year, month)
	if data, found := s.summaryCache.Get(key); found {
		slog.DebugContext(ctx, "Summary cache hit", "year", year, "month", int(month))
		return data, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	data, err := s.planner.MonthlySummary(cctx, year, month)
	if err != nil {
		return budget.Summary{}, fmt.Errorf("monthly summary (year=%d, month=%d): %w", year, int(month), err)
	}

	s.summaryCache.Set(key, data)
	return data, nil
}
