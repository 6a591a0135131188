// Package health serves liveness, readiness and prometheus metrics on a side port.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/better-bets/internal/datasource"
)

const (
	defaultPort   = 9090
	pingTimeout   = 3 * time.Second
	drainTimeout  = 5 * time.Second
	checkOK       = "ok"
	checkNotReady = "not_ready"
)

// Pinger reports whether the odds upstream is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the body of /health and /live.
type Status struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Version       string `json:"version,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Readiness is the body of /ready. Checks maps a dependency to "ok" or its failure.
type Readiness struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
	TookMS  int64             `json:"took_ms"`
}

// Config configures the side server.
type Config struct {
	ServiceName string
	Version     string
	Port        int
	MetricsPath string
	Metrics     http.Handler // mounted on MetricsPath when set
	Logger      *logrus.Logger
	Upstream    Pinger
	Now         func() time.Time
}

// Server is the health side server. It starts not ready.
type Server struct {
	cfg     Config
	log     *logrus.Entry
	started time.Time
	ready   atomic.Bool
	srv     *http.Server
}

func NewServer(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{
		cfg:     cfg,
		log:     logger.WithField("component", "health"),
		started: cfg.Now(),
	}
}

// SetReady flips the readiness flag reported by /ready.
func (s *Server) SetReady(ready bool) { s.ready.Store(ready) }

func (s *Server) IsReady() bool { return s.ready.Load() }

// Handler returns the side server routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/live", s.handleLive)
	r.Get("/ready", s.handleReady)
	if s.cfg.Metrics != nil {
		r.Handle(s.cfg.MetricsPath, s.cfg.Metrics)
	}
	return r
}

// Start binds the port and serves in the background until ctx is done.
// A bind failure is returned to the caller.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on health port %d: %w", s.cfg.Port, err)
	}

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.log.WithFields(logrus.Fields{
		"port":         s.cfg.Port,
		"metrics_path": s.cfg.MetricsPath,
	}).Info("Health server listening")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Health server stopped unexpectedly")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("Health server shutdown incomplete")
		}
	}()
	return nil
}

// Shutdown drains the server. It is a no-op before Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) status(now time.Time) Status {
	return Status{
		Status:        checkOK,
		Service:       s.cfg.ServiceName,
		Version:       s.cfg.Version,
		Timestamp:     now.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(now.Sub(s.started) / time.Second),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status(s.cfg.Now()))
}

// handleLive only proves the process answers.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Status{Status: checkOK, Service: s.cfg.ServiceName})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := s.cfg.Now()
	body := Readiness{
		Status:  checkOK,
		Service: s.cfg.ServiceName,
		Checks:  map[string]string{"service": checkOK},
	}

	if !s.IsReady() {
		body.Status = checkNotReady
		body.Checks["service"] = checkNotReady
	}

	if s.cfg.Upstream != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		err := s.cfg.Upstream.Ping(ctx)
		cancel()
		if err != nil {
			body.Status = checkNotReady
			body.Checks["odds_api"] = describe(err)
			s.log.WithError(err).Warn("Odds API not reachable")
		} else {
			body.Checks["odds_api"] = checkOK
		}
	}

	body.TookMS = s.cfg.Now().Sub(start).Milliseconds()

	code := http.StatusOK
	if body.Status != checkOK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}

// describe prefixes the datasource error code when there is one.
func describe(err error) string {
	if code := datasource.CodeOf(err); code != datasource.ErrCodeUnknown {
		return code + ": " + err.Error()
	}
	return "error: " + err.Error()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
