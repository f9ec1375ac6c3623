// Package server exposes simulations over HTTP and websockets. Every
// websocket connection owns one engine driven by its own ticker.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/metric"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/engine"
	"github.com/vajra-sim/vajra/internal/handlers"
	"github.com/vajra-sim/vajra/internal/logging"
	"github.com/vajra-sim/vajra/internal/monitor"
	"github.com/vajra-sim/vajra/internal/parser"
	"github.com/vajra-sim/vajra/internal/tactics"
	"github.com/vajra-sim/vajra/pkg/core"
)

// Catalogue supplies scenarios to sessions and the listing endpoint.
type Catalogue interface {
	handlers.Scenarios
	List() []core.ScenarioInfo
}

// Dependencies holds all dependencies of the server.
type Dependencies struct {
	LogManager *logging.SlogManager
	Scenarios  Catalogue
	// Recorder receives every session's result records. May be nil.
	Recorder   engine.Recorder
	Simulation config.SimulationConfig
	Server     config.ServerConfig
	// Meter defaults to the global OTel meter.
	Meter metric.Meter
	// EngineOptions are appended to every session engine.
	EngineOptions []engine.Option
}

// Server owns the HTTP surface and all live sessions.
type Server struct {
	deps     Dependencies
	logger   *slog.Logger
	parser   *parser.Parser
	metrics  *metrics
	upgrader ws.Upgrader
	origins  map[string]bool
	mux      *http.ServeMux

	mu       sync.RWMutex
	sim      config.SimulationConfig
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// New creates a server. Runtime speed and AI level changes start from
// deps.Simulation.
func New(deps Dependencies) (*Server, error) {
	if deps.Scenarios == nil {
		return nil, errors.New("server needs a scenario catalogue")
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}

	m, err := newMetrics(deps.Meter)
	if err != nil {
		return nil, fmt.Errorf("creating server metrics: %w", err)
	}

	s := &Server{
		deps:     deps,
		metrics:  m,
		origins:  make(map[string]bool),
		sim:      deps.Simulation,
		sessions: make(map[string]*Session),
	}
	s.sim.SpeedMultiplier = max(s.sim.SpeedMultiplier, engine.MinSpeedMultiplier)

	base := deps.LogManager.Logger()
	s.logger = slog.New(logging.NewContextHandler(base.Handler(), func() []slog.Attr {
		return []slog.Attr{slog.Int("sessions", s.SessionCount())}
	})).With("component", "server")
	s.parser = parser.NewParser(s.logger)

	for _, o := range deps.Server.AllowedOrigins {
		s.origins[o] = true
	}
	s.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.mux = http.NewServeMux()
	s.routes()
	return s, nil
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.cors(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then closes every
// session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "address", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops every session and waits for them to record their results.
func (s *Server) Close() {
	s.mu.RLock()
	for _, sess := range s.sessions {
		sess.stop()
	}
	s.mu.RUnlock()
	s.wg.Wait()
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SessionStats reports every live session, ordered by id.
func (s *Server) SessionStats() []monitor.SessionStat {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	out := make([]monitor.SessionStat, 0, len(list))
	for _, sess := range list {
		out = append(out, sess.stat())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// simulationConfig returns the config new sessions start from.
func (s *Server) simulationConfig() config.SimulationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sim
}

// SetSpeedMultiplier clamps v and applies it to new and live sessions.
func (s *Server) SetSpeedMultiplier(v float64) float64 {
	v = max(v, engine.MinSpeedMultiplier)
	s.mu.Lock()
	s.sim.SpeedMultiplier = v
	live := s.liveLocked()
	s.mu.Unlock()

	for _, sess := range live {
		sess.setSpeed(v)
	}
	s.logger.Info("Speed multiplier updated", "multiplier", v, "sessions", len(live))
	return v
}

// SetAILevel validates level and applies it to new and live sessions.
func (s *Server) SetAILevel(level string) error {
	if _, ok := tactics.ParseTier(level); !ok {
		return fmt.Errorf("%w: %q", engine.ErrUnknownAILevel, level)
	}
	s.mu.Lock()
	s.sim.AILevel = level
	live := s.liveLocked()
	s.mu.Unlock()

	for _, sess := range live {
		sess.setAILevel(level)
	}
	s.logger.Info("AI level updated", "level", level, "sessions", len(live))
	return nil
}

func (s *Server) liveLocked() []*Session {
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

func (s *Server) addSession(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.metrics.sessions.Add(context.Background(), 1)
}

func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	s.metrics.sessions.Add(context.Background(), -1)
}
