// Package server provides the HTTP REST API of the job board.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jonathan/nexthire/internal/events"
	"github.com/jonathan/nexthire/internal/identity"
	"github.com/jonathan/nexthire/internal/mailer"
	"github.com/jonathan/nexthire/internal/matching"
	"github.com/jonathan/nexthire/internal/notify"
	"github.com/jonathan/nexthire/internal/objectid"
	"github.com/jonathan/nexthire/internal/server/middleware"
	"github.com/jonathan/nexthire/internal/server/ratelimit"
	"github.com/jonathan/nexthire/internal/storage"
	"github.com/jonathan/nexthire/internal/webhook"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// ResumeScorer queues ATS scoring of an uploaded resume.
type ResumeScorer interface {
	Submit(applicationID string, resume []byte, requirements []string) error
}

// unscored leaves applications in the pending ATS state.
type unscored struct{}

func (unscored) Submit(id string, _ []byte, _ []string) error {
	log.Printf("[ats] scoring disabled, %s stays pending", id)
	return nil
}

// Deps are the collaborators of the server. Store, Identity, Tokens and
// Storage are required; the rest fall back to logging or no-op versions.
type Deps struct {
	Store     Store
	Identity  identity.Provider
	Tokens    middleware.TokenValidator
	Storage   storage.Store
	Mailer    mailer.Mailer
	Events    events.Publisher
	Notifier  notify.Notifier
	Scorer    ResumeScorer
	Webhook   *webhook.Verifier
	Skills    *matching.Table
	RateLimit *ratelimit.Config
}

// Config holds server configuration
type Config struct {
	Port        int
	CORSOrigins []string
	// FilesDir, when set, is served under /files/ for the local storage backend.
	FilesDir string
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       Store
	identity    identity.Provider
	tokens      middleware.TokenValidator
	files       storage.Store
	mailer      mailer.Mailer
	events      events.Publisher
	notifier    notify.Notifier
	scorer      ResumeScorer
	webhook     *webhook.Verifier
	skills      *matching.Table
	rateLimiter *ratelimit.Limiter
	corsOrigins []string
	filesDir    string
	bg          *background
	now         func() time.Time
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("server: store is required")
	case deps.Identity == nil:
		return nil, errors.New("server: identity provider is required")
	case deps.Tokens == nil:
		return nil, errors.New("server: token validator is required")
	case deps.Storage == nil:
		return nil, errors.New("server: file storage is required")
	}

	s := &Server{
		store:       deps.Store,
		identity:    deps.Identity,
		tokens:      deps.Tokens,
		files:       deps.Storage,
		mailer:      deps.Mailer,
		events:      deps.Events,
		notifier:    deps.Notifier,
		scorer:      deps.Scorer,
		webhook:     deps.Webhook,
		skills:      deps.Skills,
		rateLimiter: ratelimit.NewLimiter(deps.RateLimit),
		corsOrigins: cfg.CORSOrigins,
		filesDir:    cfg.FilesDir,
		bg:          newBackground(30 * time.Second),
		now:         time.Now,
	}
	if s.mailer == nil {
		s.mailer = mailer.Log{}
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.notifier == nil {
		s.notifier = notify.Log{}
	}
	if s.skills == nil {
		s.skills = matching.Default()
	}
	if s.scorer == nil {
		s.scorer = unscored{}
	}
	if len(s.corsOrigins) == 0 {
		s.corsOrigins = []string{"*"}
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler returns the routed API with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = middleware.AuthMiddleware(s.tokens)(h)
	h = s.withRateLimit(h)
	h = s.withCORS(h)
	h = middleware.AccessLog(h)
	h = middleware.Recover(h)
	h = middleware.RequestIDMiddleware(h)
	return h
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Jobs
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("POST /api/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/jobs/recommendations", s.handleRecommendJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("PATCH /api/jobs/{id}", s.handleUpdateJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.handleDeleteJob)

	// Companies
	mux.HandleFunc("POST /api/companies", s.handleCreateCompany)
	mux.HandleFunc("GET /api/companies", s.handleListMyCompanies)
	mux.HandleFunc("GET /api/companies/{id}", s.handleGetCompany)
	mux.HandleFunc("PATCH /api/companies/{id}", s.handleUpdateCompany)
	mux.HandleFunc("DELETE /api/companies/{id}", s.handleDeleteCompany)

	// Applications
	// Note: /api/applications/{id}/interview would conflict with
	// /api/applications/apply/{jobId} in the Go 1.22 mux (neither pattern is
	// more specific for /api/applications/apply/interview), so interview
	// actions live under /api/applications/interview/{id}.
	mux.HandleFunc("POST /api/applications", s.handleCreateApplication)
	mux.HandleFunc("POST /api/applications/apply/{jobId}", s.handleApply)
	mux.HandleFunc("GET /api/applications/my-applications", s.handleMyApplications)
	mux.HandleFunc("GET /api/applications/company/{companyId}", s.handleCompanyApplications)
	mux.HandleFunc("PATCH /api/applications/{id}", s.handleUpdateApplicationStatus)
	mux.HandleFunc("POST /api/applications/interview/{id}", s.handleScheduleInterview)
	mux.HandleFunc("DELETE /api/applications/interview/{id}", s.handleCancelInterview)

	// Admin
	mux.HandleFunc("GET /api/admin/companies", s.handleAdminListCompanies)
	mux.HandleFunc("PATCH /api/admin/companies/{id}/verify", s.handleAdminVerifyCompany)
	mux.HandleFunc("GET /api/admin/users", s.handleAdminListUsers)
	mux.HandleFunc("GET /api/admin/users/{id}", s.handleAdminGetUser)
	mux.HandleFunc("DELETE /api/admin/users/{id}", s.handleAdminDeleteUser)
	mux.HandleFunc("PATCH /api/admin/users/{id}/role", s.handleAdminSetRole)
	mux.HandleFunc("GET /api/admin/analytics", s.handleAdminAnalytics)
	mux.HandleFunc("GET /api/admin/dashboard", s.handleAdminDashboard)

	// Dashboards, user and profile
	mux.HandleFunc("GET /api/dashboard/company", s.handleCompanyDashboard)
	mux.HandleFunc("GET /api/user", s.handleGetUserInfo)
	mux.HandleFunc("GET /api/user/profile", s.handleGetProfile)
	mux.HandleFunc("PATCH /api/user/profile", s.handleUpdateProfile)
	mux.HandleFunc("POST /api/user/profile/resume", s.handleUploadProfileResume)

	// Uploads and webhooks
	mux.HandleFunc("POST /api/resume", s.handleUploadResume)
	mux.HandleFunc("POST /api/upload", s.handleUploadDocument)
	mux.HandleFunc("POST /api/webhooks/clerk", s.handleClerkWebhook)

	if s.filesDir != "" {
		mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(s.filesDir))))
	}
}

// Start serves until ctx is canceled, then shuts down gracefully and waits
// for background side effects.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Println("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and drains side effects.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.rateLimiter.Stop()
	if werr := s.bg.Wait(ctx); werr != nil {
		log.Printf("[server] background work still running: %v", werr)
	}
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("[server] stopped")
	return nil
}

// withCORS adds CORS headers for the configured origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowAll := slices.Contains(s.corsOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			log.Printf("[rate-limit] %s %s %s: limit=%d reset=%s", middleware.RequestID(r.Context()),
				r.Method, r.URL.Path, info.Limit, info.ResetTime.Format(time.RFC3339))
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds()+0.5)))
			}
			s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID identifies the client by remote IP.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// handleHealth reports liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log.Printf("[server] health check: %v", err)
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to its status. Internal errors are logged and
// reported with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[server] %s %s %s: %v", middleware.RequestID(r.Context()), r.Method, r.URL.Path, err)
		s.errorResponse(w, status, "Internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON reads a bounded JSON body into dst.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			s.errorResponse(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pathID parses an object-id path value, writing 400 with message when
// it is malformed.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name, message string) (string, bool) {
	id, ok := objectid.Parse(r.PathValue(name))
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, message)
		return "", false
	}
	return id, true
}

// queryFlag reports whether a boolean query parameter is set to true.
func queryFlag(r *http.Request, key string) bool {
	return strings.EqualFold(strings.TrimSpace(r.URL.Query().Get(key)), "true")
}
