package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/radutopala/threads/internal/auth"
	"github.com/radutopala/threads/internal/logging"
	"github.com/radutopala/threads/internal/metrics"
	"github.com/radutopala/threads/internal/response"
	"github.com/radutopala/threads/internal/thread"
)

// ThreadOpener opens a per-request thread controller for a subject.
type ThreadOpener interface {
	Open(ctx context.Context, subject string, sess auth.Session) (*thread.Controller, error)
}

// Server exposes the thread actions over HTTP.
type Server struct {
	threads  ThreadOpener
	resolver auth.Resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new API server. resolver may be nil, in which case
// every request is anonymous.
func NewServer(threads ThreadOpener, resolver auth.Resolver, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		threads:  threads,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
	}
}

// Handler returns the routed and middleware-wrapped API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /api/subjects/{subject}/thread", s.instrument("view_thread", s.handleViewThread))
	mux.Handle("POST /api/subjects/{subject}/thread", s.instrument("actions", s.handleActions))
	mux.Handle("POST /api/subjects/{subject}/thread/posts", s.instrument(thread.ActionAddPost, s.handleAddPost))
	mux.Handle("DELETE /api/subjects/{subject}/thread/posts/{post_id}", s.instrument(thread.ActionDeletePost, s.handleDeletePost))
	mux.Handle("DELETE /api/subjects/{subject}/thread/{thread_id}", s.instrument(thread.ActionDeleteThread, s.handleDeleteThread))
	mux.Handle("GET /metrics", s.metrics.Handler())

	return logging.Middleware(s.logger)(auth.Middleware(s.resolver)(mux))
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", err)
		}
	}()

	s.logger.Info("api server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// instrument records the route's response code and latency.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := logging.NewStatusRecorder(w)
		h(rec, r)
		s.metrics.ObserveResponse(route, rec.Status, time.Since(start))
	})
}

// open loads the controller for the request's subject. On failure it writes a
// 500 response and returns false.
func (s *Server) open(w http.ResponseWriter, r *http.Request) (*thread.Controller, bool) {
	subject := r.PathValue("subject")
	c, err := s.threads.Open(r.Context(), subject, auth.FromContext(r.Context()))
	if err != nil {
		s.logger.Error("opening thread", "subject", subject, "error", err)
		response.Write(w, response.Payload{response.StatusKey: http.StatusInternalServerError, "errors": "internal error"})
		return nil, false
	}
	return c, true
}

// reconcile writes the controller's collected results as the response.
func (s *Server) reconcile(w http.ResponseWriter, c *thread.Controller) {
	p := c.Payload()
	s.metrics.ObservePayload(p)
	response.Write(w, p)
}
