// Package api provides the HTTP API server for ledgerbox email search.
package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerbox/ledgerbox/internal/config"
	"github.com/ledgerbox/ledgerbox/internal/history"
	"github.com/ledgerbox/ledgerbox/internal/query"
	"github.com/ledgerbox/ledgerbox/internal/search"
	"github.com/ledgerbox/ledgerbox/internal/searchsvc"
	"github.com/ledgerbox/ledgerbox/internal/store"
	"github.com/ledgerbox/ledgerbox/internal/suggest"
)

// SearchService defines the search operations the API needs.
// *searchsvc.Service implements it.
type SearchService interface {
	Search(ctx context.Context, userID string, p searchsvc.Params) (*searchsvc.Response, error)
	SearchAttachments(ctx context.Context, userID string, q query.AttachmentQuery) ([]query.AttachmentHit, error)
	Suggest(ctx context.Context, userID, partial string) ([]suggest.Suggestion, error)
	History(userID string) []history.Entry
	SaveSearch(ctx context.Context, userID, name, text string, filters search.FilterSet) (*query.SavedSearch, error)
	ListSavedSearches(ctx context.Context, userID string) ([]query.SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, userID, id string) error
}

// StatsProvider exposes store statistics for the stats endpoint.
type StatsProvider interface {
	GetStats() (*store.Stats, error)
}

// Server represents the HTTP API server.
type Server struct {
	cfg         *config.Config
	svc         SearchService
	stats       StatsProvider
	logger      *slog.Logger
	router      chi.Router
	server      *http.Server
	rateLimiter *RateLimiter
}

// NewServer creates a new API server. stats may be nil; the stats
// endpoint then reports the store as unavailable.
func NewServer(cfg *config.Config, svc SearchService, stats StatsProvider, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		stats:  stats,
		logger: logger,
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	rps := s.cfg.Server.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := s.cfg.Server.RateBurst
	if burst <= 0 {
		burst = 20
	}
	s.rateLimiter = NewRateLimiter(rps, burst)
	r.Use(RateLimitMiddleware(s.rateLimiter))

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// API routes (auth required)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/stats", s.handleStats)
		r.Get("/search", s.handleSearch)
		r.Get("/attachments", s.handleSearchAttachments)
		r.Get("/suggest", s.handleSuggest)
		r.Get("/history", s.handleHistory)

		r.Route("/saved-searches", func(r chi.Router) {
			r.Get("/", s.handleListSavedSearches)
			r.Post("/", s.handleCreateSavedSearch)
			r.Delete("/{id}", s.handleDeleteSavedSearch)
		})
	})

	return r
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.cfg.Server.APIPort))

	if s.cfg.Server.APIKey == "" {
		s.logger.Warn("API server running without authentication; set [server] api_key in config.toml")
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs HTTP requests.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// authMiddleware validates the API key.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key configured
		if s.cfg.Server.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			authHeader = r.Header.Get("X-API-Key")
		}
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			authHeader = authHeader[7:]
		}

		if subtle.ConstantTimeCompare([]byte(authHeader), []byte(s.cfg.Server.APIKey)) != 1 {
			s.logger.Warn("unauthorized API request",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
