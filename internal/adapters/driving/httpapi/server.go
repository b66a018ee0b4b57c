// Package httpapi exposes the chatstate services over a JSON HTTP API.
//
// The acting identity is taken from the X-User-ID header. Requests
// without it are anonymous and may only read public chats.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// Sentinel errors for missing services.
var (
	ErrMissingChatService     = errors.New("httpapi: chat service is required")
	ErrMissingMessageService  = errors.New("httpapi: message service is required")
	ErrMissingVoteService     = errors.New("httpapi: vote service is required")
	ErrMissingDocumentService = errors.New("httpapi: document service is required")
	ErrMissingCoordinator     = errors.New("httpapi: coordinator is required")
)

// Ports holds the driving services the API calls.
type Ports struct {
	Chats       driving.ChatService
	Messages    driving.MessageService
	Votes       driving.VoteService
	Documents   driving.DocumentService
	Coordinator driving.Coordinator
}

// Validate checks that every service is set.
func (p *Ports) Validate() error {
	switch {
	case p.Chats == nil:
		return ErrMissingChatService
	case p.Messages == nil:
		return ErrMissingMessageService
	case p.Votes == nil:
		return ErrMissingVoteService
	case p.Documents == nil:
		return ErrMissingDocumentService
	case p.Coordinator == nil:
		return ErrMissingCoordinator
	}
	return nil
}

// Options configures the router.
type Options struct {
	// HTTP carries the CORS origins and rate limits.
	HTTP domain.HTTPConfig

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Server serves the HTTP API.
type Server struct {
	ports   *Ports
	limiter *RateLimiter
	router  chi.Router
}

// NewServer builds the router for the given ports.
func NewServer(ports *Ports, opts Options) (*Server, error) {
	if ports == nil {
		return nil, ErrMissingChatService
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports:   ports,
		limiter: NewRateLimiter(opts.HTTP.RateLimit, opts.HTTP.Burst),
	}
	s.router = s.routes(opts)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Limiter returns the per-identity rate limiter so limits can be changed
// when the configuration is reloaded.
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

func (s *Server) routes(opts Options) chi.Router {
	origins := opts.HTTP.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", IdentityHeader, "Mcp-Session-Id"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(Identity)
		r.Use(s.limiter.Middleware)

		r.Route("/chats", func(r chi.Router) {
			r.Post("/", s.createChat)
			r.Get("/", s.listChats)
			r.Route("/{chatID}", func(r chi.Router) {
				r.Get("/", s.getChat)
				r.Delete("/", s.deleteChat)
				r.Patch("/visibility", s.setVisibility)
				r.Post("/messages", s.appendMessages)
				r.Get("/messages", s.listMessages)
				r.Put("/votes/{messageID}", s.vote)
				r.Get("/votes", s.listVotes)
			})
		})
		r.Delete("/messages/{messageID}/trailing", s.deleteTrailing)

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Post("/versions", s.saveVersion)
			r.Get("/versions", s.listVersions)
			r.Get("/latest", s.latestVersion)
			r.Post("/restore", s.restoreVersion)
		})

		if opts.MCP != nil {
			r.Mount("/mcp", opts.MCP)
		}
	})

	return r
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http api: %w", err)
	}
	return nil
}
