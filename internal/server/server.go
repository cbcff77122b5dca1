// Package server exposes the action engine and task reports over HTTP.
// Credentials arrive with every request; the server keeps none of its own.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	coreagent "github.com/agisilaos/asana-planner/internal/agent"
	"github.com/agisilaos/asana-planner/internal/api"
	appagent "github.com/agisilaos/asana-planner/internal/app/agent"
	"github.com/agisilaos/asana-planner/internal/audit"
)

const (
	HeaderToken     = "X-Asana-Token"
	HeaderWorkspace = "X-Workspace-Gid"
	HeaderProject   = "X-Project-Gid"
	HeaderUser      = "X-User-Gid"

	maxBodyBytes = 1 << 20
)

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	// Audit is optional; when nil executed batches are not recorded.
	Audit  *audit.Store
	Logger *slog.Logger
	Now    func() time.Time
}

type Server struct {
	opts   Options
	logger *slog.Logger
	router chi.Router
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	s := &Server{opts: opts, logger: opts.Logger}
	s.router = s.buildRouter()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/credentials/status", s.handleCredentialStatus)
		r.Get("/workspaces", s.handleWorkspaces)
		r.Get("/projects", s.handleProjects)
		r.Get("/tasks", s.handleTasks)
		r.Post("/plan/weekly", s.handleWeeklyPlan)
		r.Post("/brainstorm", s.handleBrainstorm)
		r.Post("/actions/execute", s.handleExecute)
		r.Get("/audit", s.handleAudit)
	})
	return r
}

func credentialsFromRequest(r *http.Request) coreagent.Credentials {
	return coreagent.Credentials{
		Token:        strings.TrimSpace(r.Header.Get(HeaderToken)),
		WorkspaceGID: strings.TrimSpace(r.Header.Get(HeaderWorkspace)),
		ProjectGID:   strings.TrimSpace(r.Header.Get(HeaderProject)),
		UserGID:      strings.TrimSpace(r.Header.Get(HeaderUser)),
	}
}

func (s *Server) client(creds coreagent.Credentials) *api.Client {
	// one limiter per request; concurrent batches do not pace each other
	return api.NewClient(s.opts.BaseURL, creds.Token, s.opts.Timeout).WithRateLimit(s.opts.RateLimit, s.opts.RateBurst)
}

func (s *Server) executor() *appagent.Executor {
	return appagent.NewExecutor(func(creds coreagent.Credentials) appagent.Gateway {
		return s.client(creds)
	}, s.logger)
}
