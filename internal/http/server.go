// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/backup"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
	"ledger/internal/sheets"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the services the API serves.
type Deps struct {
	Ledger *services.LedgerService
	Users  *services.UserService
	// Sheets receives pushed month summaries; nil disables the push route.
	Sheets sheets.SummaryWriter
	// Backups stores on-demand backups; nil disables the backup route.
	Backups backup.Sink
	// DueSoonDays is the default due-soon horizon.
	DueSoonDays int
	// WritesPerMinute caps state-changing requests per client; zero uses
	// the limiter default.
	WritesPerMinute int
	Logger          *applog.Logger
}

type Server struct {
	http.Server
	deps    Deps
	logger  *applog.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}

	ip := security.NewClientIPResolver()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		deps:    deps,
		logger:  logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.WritesPerMinute}),
		tracer:  trace.NewMiddleware(logger, ip.ClientIP),
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.limiter.Middleware(ip.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(r.Context(), http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError(r.Context(), "no such route").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(r.Context(), http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Post("/signup", s.handleSignup)
	r.Post("/auth", s.handleAuthenticate)
	r.Post("/auth/reset", s.handleResetSecret)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/", s.handleGetUser)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Route("/obligations", func(r chi.Router) {
			r.Get("/", s.handleListObligations)
			r.Post("/", s.handleScheduleObligation)
			r.Get("/due-soon", s.handleDueSoon)
			r.Get("/{id}", s.handleGetObligation)
			r.Put("/{id}", s.handleUpdateObligation)
			r.Delete("/{id}", s.handleDeleteObligation)
			r.Post("/{id}/pay", s.handlePayObligation)
		})

		r.Route("/summary/{year}", func(r chi.Router) {
			r.Get("/", s.handleYearOverview)
			r.Get("/{month}", s.handleMonthOverview)
			r.Get("/{month}/savings", s.handleSavingsProgress)
			r.Post("/{month}/push", s.handlePushSummary)
		})

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Post("/backup", s.handleBackup)
	})

	s.Handler = r
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requireUser answers 404 for routes below an unknown user.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.deps.Users.Lookup(r.Context(), chi.URLParam(r, "userID")); err != nil {
			ServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string {
	return chi.URLParam(r, "userID")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.deps.Ledger.VisibleCategories(ctx, ""); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		ErrorResponse(r.Context(), http.StatusServiceUnavailable, "store unavailable").Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(struct {
		trace.Metrics
		RateLimited   int64 `json:"rateLimited"`
		ActiveClients int   `json:"activeClients"`
	}{
		Metrics:       s.tracer.GetMetrics(),
		RateLimited:   s.limiter.Rejected(),
		ActiveClients: s.limiter.ActiveClients(),
	}).Write(w)
}
