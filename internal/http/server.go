// Package http exposes the insights engine and record store over a JSON
// API. Every operation returns either a JSON payload or an {"error": msg}
// envelope.
package http

import (
	"container/list"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"homebudget/internal/core"
	"homebudget/internal/insights"
	"homebudget/internal/records"
	"homebudget/internal/services"
)

// Store is the full persistence surface the API needs: the engine's read
// interface plus the write operations.
type Store interface {
	records.Reader

	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	SetTransactionPaid(ctx context.Context, id int64, paid bool) error
	SetTransactionAutoPay(ctx context.Context, id int64, autoPay bool) error

	CreateDebt(ctx context.Context, d core.Debt) (int64, error)
	UpdateDebt(ctx context.Context, id int64, u core.DebtUpdate) error
	DeleteDebt(ctx context.Context, id int64) error

	CreateGoal(ctx context.Context, g core.Goal) (int64, error)
	UpdateGoalProgress(ctx context.Context, id int64, currentAmount float64) error

	CreateIncomeSource(ctx context.Context, s core.IncomeSource) (int64, error)
	UpdateIncomeSource(ctx context.Context, s core.IncomeSource) error
	DeleteIncomeSource(ctx context.Context, id int64) error

	ListWisdomTips(ctx context.Context, season string, month int) ([]core.WisdomTip, error)
}

// lruCache is a small TTL'd LRU used for the analysis payload, which is
// expensive relative to the point lookups and read-mostly.
type lruCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func newLRUCache[T any](maxSize int, ttl time.Duration) *lruCache[T] {
	return &lruCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *lruCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *lruCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *lruCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
}

func (c *lruCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries
func (c *lruCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Simple in-memory per-IP rate limiter
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
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
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

type Server struct {
	http.Server
	store       Store
	engine      *insights.Engine
	analysis    *services.AnalysisService
	rateLimiter *rateLimiter

	analysisCache *lruCache[*insights.Analysis]

	// now is swappable so tests can pin the reference date
	now func() time.Time

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, store Store, engine *insights.Engine, analysis *services.AnalysisService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:            store,
		engine:           engine,
		analysis:         analysis,
		rateLimiter:      newRateLimiter(),
		analysisCache:    newLRUCache[*insights.Analysis](10, time.Minute),
		now:              time.Now,
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// Insights
	mux.HandleFunc("GET /api/financial-analysis", s.withSecurityHeaders(s.handleFinancialAnalysis))
	mux.HandleFunc("GET /api/budget-health-score", s.withSecurityHeaders(s.handleHealthScore))
	mux.HandleFunc("GET /api/pattern-alerts", s.withSecurityHeaders(s.handlePatternAlerts))
	mux.HandleFunc("GET /api/variable-income", s.withSecurityHeaders(s.handleVariableIncome))
	mux.HandleFunc("POST /api/debt-payoff", s.withSecurityHeaders(s.handleDebtPayoff))
	mux.HandleFunc("GET /api/goal-projection", s.withSecurityHeaders(s.handleGoalProjection))
	mux.HandleFunc("GET /api/monthly-summary", s.withSecurityHeaders(s.handleMonthlySummary))
	mux.HandleFunc("GET /api/money-left-per-day", s.withSecurityHeaders(s.handleMoneyLeftPerDay))
	mux.HandleFunc("GET /api/projected-balance", s.withSecurityHeaders(s.handleProjectedBalance))
	mux.HandleFunc("GET /api/bill-reminders", s.withSecurityHeaders(s.handleBillReminders))
	mux.HandleFunc("GET /api/wisdom-tips", s.withSecurityHeaders(s.handleWisdomTips))
	mux.HandleFunc("GET /api/days-until-next-paycheck", s.withSecurityHeaders(s.handleNextPaycheck))
	mux.HandleFunc("GET /api/month-to-date-spending", s.withSecurityHeaders(s.handleMonthToDateSpending))
	mux.HandleFunc("GET /api/spending-velocity", s.withSecurityHeaders(s.handleSpendingVelocity))

	// Records
	mux.HandleFunc("GET /api/accounts", s.withSecurityHeaders(s.handleListAccounts))
	mux.HandleFunc("GET /api/transactions", s.withSecurityHeaders(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("POST /api/transactions/{id}/paid", s.withSecurityHeaders(s.handleTogglePaid))
	mux.HandleFunc("POST /api/transactions/{id}/auto-pay", s.withSecurityHeaders(s.handleToggleAutoPay))

	mux.HandleFunc("GET /api/debts", s.withSecurityHeaders(s.handleListDebts))
	mux.HandleFunc("POST /api/debts", s.withSecurityHeaders(s.handleCreateDebt))
	mux.HandleFunc("PATCH /api/debts/{id}", s.withSecurityHeaders(s.handleUpdateDebt))
	mux.HandleFunc("DELETE /api/debts/{id}", s.withSecurityHeaders(s.handleDeleteDebt))

	mux.HandleFunc("GET /api/goals", s.withSecurityHeaders(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.withSecurityHeaders(s.handleCreateGoal))
	mux.HandleFunc("POST /api/goals/{id}/progress", s.withSecurityHeaders(s.handleGoalProgress))

	mux.HandleFunc("GET /api/income-sources", s.withSecurityHeaders(s.handleListIncomeSources))
	mux.HandleFunc("POST /api/income-sources", s.withSecurityHeaders(s.handleCreateIncomeSource))
	mux.HandleFunc("PUT /api/income-sources/{id}", s.withSecurityHeaders(s.handleUpdateIncomeSource))
	mux.HandleFunc("DELETE /api/income-sources/{id}", s.withSecurityHeaders(s.handleDeleteIncomeSource))

	return s
}

// startCacheCleanup evicts expired analysis entries periodically.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.analysisCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
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

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutating requests only
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

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
