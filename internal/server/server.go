package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/releasebot/internal/config"
	rbslack "github.com/gosuda/releasebot/internal/messenger/slack"
	"github.com/gosuda/releasebot/internal/server/middleware"
)

// Server is the HTTP server carrying the health check and, in HTTP mode,
// the Slack webhook routes.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	slack      *rbslack.Handler // nil in socket mode
}

// New creates a Server with all routes wired. slackHandler may be nil, in
// which case the Slack routes answer 501. ctx bounds background work of the
// rate limiter.
func New(ctx context.Context, cfg *config.Config, slackHandler *rbslack.Handler) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(requestLogger)
	router.Use(chimw.Recoverer)

	s := &Server{
		router: router,
		slack:  slackHandler,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	apiConfig := huma.DefaultConfig("releasebot", "1.0.0")
	apiConfig.OpenAPIPath = ""
	apiConfig.DocsPath = ""
	apiConfig.SchemasPath = ""
	api := humachi.New(router, apiConfig)
	registerHealthRoutes(api, cfg.Slack.Mode)

	// Slack webhook routes: real handler if configured, 501 placeholder otherwise.
	router.Route("/slack", func(r chi.Router) {
		if slackHandler != nil {
			r.Use(middleware.RateLimitByIP(ctx, cfg.Server.SlackRateLimit, cfg.Server.SlackBurst))
			registerSlackRoutes(r, slackHandler)
			log.Info().Msg("slack webhook routes enabled")
		} else {
			r.Post("/events", notImplemented)
			r.Post("/interactions", notImplemented)
		}
	})

	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, then waits for Slack triggers
// the webhook routes already accepted.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}

	if s.slack != nil {
		done := make(chan struct{})
		go func() {
			s.slack.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("server.Shutdown: waiting for slack triggers: %w", ctx.Err())
		}
	}

	return nil
}

func notImplemented(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}

// requestLogger logs each request through zerolog once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Msg("http request")
	})
}
