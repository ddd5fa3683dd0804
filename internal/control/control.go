// Package control serves the bridge control surface over HTTP.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/bft-labs/framebridge/pkg/bridge"
	"github.com/bft-labs/framebridge/pkg/log"
	"github.com/bft-labs/framebridge/pkg/storage"
)

// ShutdownTimeout bounds graceful server shutdown.
const ShutdownTimeout = 5 * time.Second

// Command endpoints are limited per client IP.
const (
	CommandLimit  = 60
	CommandWindow = time.Minute
)

// Controller is the part of *bridge.Bridge the HTTP surface drives.
type Controller interface {
	Pause()
	Resume()
	Stop()
	RequestFlush()
	Status() bridge.Status
}

// SyncStatus is the JSON form of a finished storage operation.
type SyncStatus struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Running        int         `json:"running"`
	State          string      `json:"state"`
	Frames         uint64      `json:"frames"`
	PauseRequested bool        `json:"pause_requested"`
	StopRequested  bool        `json:"stop_requested"`
	Mount          string      `json:"mount,omitempty"`
	Imports        uint64      `json:"imports"`
	Exports        uint64      `json:"exports"`
	LastImport     *SyncStatus `json:"last_import,omitempty"`
	LastExport     *SyncStatus `json:"last_export,omitempty"`
}

func newStatusResponse(s bridge.Status) StatusResponse {
	resp := StatusResponse{
		State:          s.State.String(),
		Frames:         s.Frames,
		PauseRequested: s.PauseRequested,
		StopRequested:  s.StopRequested,
		Mount:          s.MountPoint,
		Imports:        s.Imports,
		Exports:        s.Exports,
		LastImport:     syncStatus(s.LastImport),
		LastExport:     syncStatus(s.LastExport),
	}
	if s.Running {
		resp.Running = 1
	}
	return resp
}

func syncStatus(r *storage.Result) *SyncStatus {
	if r == nil {
		return nil
	}
	return &SyncStatus{
		OK:         r.Success(),
		Error:      r.Reason(),
		DurationMS: r.Duration.Milliseconds(),
	}
}

// NewHandler routes the control endpoints to c. A nil metrics handler
// leaves /metrics unrouted.
func NewHandler(c Controller, metrics http.Handler, logger log.Logger) http.Handler {
	logger = log.OrNoop(logger)
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, logger, http.StatusOK, newStatusResponse(c.Status()))
		})
		r.Group(func(r chi.Router) {
			r.Use(commandRateLimit(logger))
			r.Post("/pause", command(c, logger, "pause", c.Pause))
			r.Post("/resume", command(c, logger, "resume", c.Resume))
			r.Post("/stop", command(c, logger, "stop", c.Stop))
			r.Post("/flush", command(c, logger, "flush", c.RequestFlush))
		})
	})
	return r
}

func commandRateLimit(logger log.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(
		CommandLimit,
		CommandWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("control request rate limited", log.String("remote", r.RemoteAddr))
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(CommandWindow.Seconds())))
			writeJSON(w, logger, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}),
	)
}

// command sets a control flag and answers 202 with the current status; the
// effect shows up on the next tick.
func command(c Controller, logger log.Logger, name string, fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn()
		logger.Info("control request", log.Op(name), log.String("remote", r.RemoteAddr))
		writeJSON(w, logger, http.StatusAccepted, newStatusResponse(c.Status()))
	}
}

func writeJSON(w http.ResponseWriter, logger log.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response failed", log.Op("control"), log.Err(err))
	}
}

// Server runs the control handler on a TCP address.
type Server struct {
	srv    *http.Server
	logger log.Logger
}

// NewServer creates a server for handler on addr.
func NewServer(addr string, handler http.Handler, logger log.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log.OrNoop(logger),
	}
}

// Run listens and serves until ctx is done, then shuts down gracefully.
// A bind failure is returned immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("control server listening", log.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
