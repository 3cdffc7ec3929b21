// Package api exposes the review service over HTTP: trigger a review,
// poll its status, health check.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kurslab/reviewd/internal/types"
)

// ReviewService is the slice of the orchestrator the HTTP layer needs
type ReviewService interface {
	Trigger(ctx context.Context, submissionID string, force bool) (*types.Review, bool, error)
	Status(ctx context.Context, submissionID string) (*types.Review, error)
}

// Config holds HTTP server configuration
type Config struct {
	// ListenAddr is the address to bind (default: ":8080")
	ListenAddr string
	// Authorizer guards all /api routes (default: AllowAll)
	Authorizer Authorizer
	// TriggerPerMinute rate-limits the trigger endpoint across all callers.
	// Review runs are expensive; a stuck frontend retry loop must not turn
	// into an Anthropic bill. Default: 30.
	TriggerPerMinute int
	// TriggerBurst is the rate limiter burst size (default: 10)
	TriggerBurst int
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       ":8080",
		Authorizer:       AllowAll{},
		TriggerPerMinute: 30,
		TriggerBurst:     10,
	}
}

// Server is the HTTP front end for the review service
type Server struct {
	reviews    ReviewService
	httpServer *http.Server
}

// NewServer creates a server wired to the given review service
func NewServer(reviews ReviewService, cfg *Config) (*Server, error) {
	if reviews == nil {
		return nil, fmt.Errorf("review service is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Authorizer == nil {
		cfg.Authorizer = AllowAll{}
	}
	if cfg.TriggerPerMinute <= 0 {
		cfg.TriggerPerMinute = 30
	}
	if cfg.TriggerBurst <= 0 {
		cfg.TriggerBurst = 10
	}

	s := &Server{reviews: reviews}
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// router builds the route table. Trigger is POST and rate limited; status is
// GET and unmetered so polling clients never starve the thing they wait on.
func (s *Server) router(cfg *Config) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	apiRoutes := r.PathPrefix("/api").Subrouter()
	apiRoutes.Use(authMiddleware(cfg.Authorizer))

	triggerRoutes := apiRoutes.NewRoute().Subrouter()
	triggerRoutes.Use(rateLimitMiddleware(cfg.TriggerPerMinute, cfg.TriggerBurst))
	triggerRoutes.HandleFunc("/submissions/{id}/review", s.handleTrigger).Methods("POST")

	apiRoutes.HandleFunc("/submissions/{id}/review", s.handleStatus).Methods("GET")

	return r
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route table for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
