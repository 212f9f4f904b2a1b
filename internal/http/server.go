// Package http serves the budgeting UI: server-rendered pages with htmx
// partials, session-cookie auth, and CSV import/export endpoints.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	"kakeibo/internal/services"
	appweb "kakeibo/web"
)

const sessionCookie = "kakeibo_session"

type Server struct {
	http.Server
	templates *template.Template

	auth         *auth.Service
	transactions *services.TransactionService
	categories   *services.CategoryService
	budgets      *services.BudgetService
	csv          *services.CSVService

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// listCache holds each owner's full transaction history; every view
	// derives from it, so one invalidation per write keeps all partials
	// consistent.
	listCache    *cache.LRU[[]core.Transaction]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, authSvc *auth.Service, tx *services.TransactionService, cat *services.CategoryService, bud *services.BudgetService, csv *services.CSVService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:         authSvc,
		transactions: tx,
		categories:   cat,
		budgets:      bud,
		csv:          csv,
		rateLimiter:  newRateLimiter(),
		metrics:      &securityMetrics{},
		listCache:    cache.NewLRU[[]core.Transaction](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("POST /auth/link", s.withSecurityHeaders(s.handleRequestLink))
	mux.HandleFunc("GET /auth/redeem", s.withSecurityHeaders(s.handleRedeem))
	mux.HandleFunc("POST /auth/logout", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("GET /ui/overview", s.withSecurityHeaders(s.withSession(s.handleOverview)))
	mux.HandleFunc("GET /ui/transactions", s.withSecurityHeaders(s.withSession(s.handleListTransactions)))
	mux.HandleFunc("POST /transactions", s.withSecurityHeaders(s.withSession(s.handleCreateTransaction)))
	mux.HandleFunc("POST /transactions/{id}/delete", s.withSecurityHeaders(s.withSession(s.handleDeleteTransaction)))

	mux.HandleFunc("GET /ui/budgets", s.withSecurityHeaders(s.withSession(s.handleBudgets)))
	mux.HandleFunc("POST /budgets", s.withSecurityHeaders(s.withSession(s.handleSaveBudget)))
	mux.HandleFunc("POST /budgets/copy", s.withSecurityHeaders(s.withSession(s.handleCopyBudgets)))
	mux.HandleFunc("POST /budgets/rollover/accept", s.withSecurityHeaders(s.withSession(s.handleAcceptRollover)))
	mux.HandleFunc("POST /budgets/rollover/dismiss", s.withSecurityHeaders(s.withSession(s.handleDismissRollover)))

	mux.HandleFunc("GET /ui/categories", s.withSecurityHeaders(s.withSession(s.handleListCategories)))
	mux.HandleFunc("POST /categories", s.withSecurityHeaders(s.withSession(s.handleCreateCategory)))
	mux.HandleFunc("POST /categories/rename", s.withSecurityHeaders(s.withSession(s.handleRenameCategory)))
	mux.HandleFunc("POST /categories/delete", s.withSecurityHeaders(s.withSession(s.handleDeleteCategory)))

	mux.HandleFunc("POST /csv/import", s.withSecurityHeaders(s.withSession(s.handleImportCSV)))
	mux.HandleFunc("GET /csv/export", s.withSecurityHeaders(s.withSession(s.handleExportCSV)))

	return s
}

// Shutdown stops the HTTP server and the background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// sessionHandler receives the owner ID resolved from the session cookie.
type sessionHandler func(w http.ResponseWriter, r *http.Request, ownerID string)

// withSession resolves the session cookie. Partial and API requests get
// 401, page requests get the login screen via the index handler.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := s.sessionOwner(r)
		if !ok {
			s.metrics.recordRejectedLogin()
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`<div class="error">セッションの有効期限が切れました。再度ログインしてください。</div>`))
			return
		}
		next(w, r, ownerID)
	}
}

func (s *Server) sessionOwner(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	ownerID, err := s.auth.Verify(c.Value)
	if err != nil {
		return "", false
	}
	return ownerID, true
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
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

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleMetrics exposes security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	rateLimitHits := atomic.LoadInt64(&s.metrics.rateLimitHits)
	rejectedLogins := atomic.LoadInt64(&s.metrics.rejectedLogins)
	activeClients := s.rateLimiter.activeClients()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitHits)

	fmt.Fprintf(w, "# HELP rejected_logins_total Total requests rejected for a missing or invalid session\n")
	fmt.Fprintf(w, "# TYPE rejected_logins_total counter\n")
	fmt.Fprintf(w, "rejected_logins_total %d\n\n", rejectedLogins)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n", activeClients)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	// Touch storage through the lightest read available.
	if _, err := s.categories.List(ctx, "readyz"); err != nil {
		slog.ErrorContext(ctx, "Readiness storage check failed", "error", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// Cache keys are owner|view so one prefix delete clears every cached
// view of an owner.
func cacheKey(ownerID, view string) string {
	return ownerID + "|" + view
}

// ownerTransactions loads the owner's full history, through the cache.
func (s *Server) ownerTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	key := cacheKey(ownerID, "transactions")
	if items, ok := s.listCache.Get(key); ok {
		out := make([]core.Transaction, len(items))
		copy(out, items)
		return out, nil
	}
	items, err := s.transactions.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.listCache.Set(key, items)
	return items, nil
}

func (s *Server) invalidateOwner(ownerID string) {
	s.listCache.DeletePrefix(ownerID + "|")
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}
