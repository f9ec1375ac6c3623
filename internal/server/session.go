package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/vajra-sim/vajra/internal/dispatcher"
	"github.com/vajra-sim/vajra/internal/engine"
	"github.com/vajra-sim/vajra/internal/handlers"
	"github.com/vajra-sim/vajra/internal/monitor"
	"github.com/vajra-sim/vajra/internal/queue"
	"github.com/vajra-sim/vajra/pkg/streaming"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 64 * 1024
)

// Session is one websocket client and the engine it drives. Commands are
// queued by the reader and applied at most one per tick, before Update.
type Session struct {
	id     string
	srv    *Server
	conn   *ws.Conn
	logger *slog.Logger

	// mu serializes every engine call: ticks, HTTP config changes and stats.
	mu         sync.Mutex
	engine     *engine.Engine
	dispatcher *dispatcher.Dispatcher
	inbox      *queue.Queue[streaming.Command]
	interval   time.Duration

	lastTick atomic.Int64
	overruns atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Server) newSession(conn *ws.Conn) (*Session, error) {
	id := uuid.NewString()
	logger := s.logger.With("session", id)

	cfg := s.simulationConfig()
	opts := []engine.Option{engine.WithLogger(logger)}
	if s.deps.Recorder != nil {
		opts = append(opts, engine.WithRecorder(s.deps.Recorder))
	}
	opts = append(opts, s.deps.EngineOptions...)

	var dset []dispatcher.Setting
	if s.deps.Meter != nil {
		dset = append(dset, dispatcher.WithMeter(s.deps.Meter))
	}
	d, err := dispatcher.New(logger, dset...)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		id:         id,
		srv:        s,
		conn:       conn,
		logger:     logger,
		engine:     engine.New(cfg, opts...),
		dispatcher: d,
		inbox:      queue.NewBounded[streaming.Command](s.deps.Server.MaxPendingCommands),
		interval:   cfg.TickDuration(),
	}
	if sess.interval <= 0 {
		sess.interval = time.Second / 60
	}
	sess.ctx, sess.cancel = context.WithCancel(context.Background())

	handlers.NewService(handlers.Dependencies{
		Scenarios:  s.deps.Scenarios,
		LogManager: s.deps.LogManager,
	}, sess.engine).RegisterHandlers(d)

	return sess, nil
}

// run drives the session until the client leaves or stop is called. The
// engine is reset on exit so an unfinished run is recorded.
func (sess *Session) run() {
	defer sess.shutdown()

	go sess.readLoop()

	ticker := time.NewTicker(sess.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			if err := sess.tick(sess.interval); err != nil {
				sess.logger.Debug("Session write failed", "error", err)
				return
			}
		}
	}
}

// tick applies one queued command, advances the engine and writes the snapshot.
func (sess *Session) tick(interval time.Duration) error {
	start := time.Now()

	sess.mu.Lock()
	if cmd, ok := sess.inbox.TryPop(); ok {
		sess.apply(cmd)
	}
	snap := sess.engine.Update()
	sess.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := sess.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := sess.conn.WriteMessage(ws.TextMessage, data); err != nil {
		return err
	}

	took := time.Since(start)
	sess.lastTick.Store(int64(took))
	ctx := context.Background()
	sess.srv.metrics.tickDuration.Record(ctx, float64(took.Microseconds())/1000,
		metric.WithAttributes(attribute.String("status", string(snap.SimulationState.Status))))
	if took > interval {
		sess.overruns.Add(1)
		sess.srv.metrics.tickOverrun.Add(ctx, 1)
	}
	return nil
}

// apply dispatches cmd synchronously. Rejected commands leave the engine
// unchanged and keep the socket open.
func (sess *Session) apply(cmd streaming.Command) {
	_, err := sess.dispatcher.Dispatch(dispatcher.Event{Command: cmd.Command, Payload: cmd})
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrInvalidTransition):
		sess.logger.Debug("Command ignored", "command", cmd.Command, "error", err)
	default:
		sess.logger.Warn("Command rejected", "command", cmd.Command, "error", err)
	}
}

// readLoop parses client messages into the inbox until the socket fails.
func (sess *Session) readLoop() {
	defer sess.cancel()
	sess.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway, ws.CloseNoStatusReceived) {
				sess.logger.Warn("Socket closed unexpectedly", "error", err)
			}
			return
		}

		cmd, err := sess.srv.parser.ParseCommand(raw)
		if err != nil {
			sess.srv.metrics.rejected.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("reason", "parse")))
			sess.logger.Warn("Invalid command", "error", err)
			continue
		}
		if !sess.inbox.Offer(cmd) {
			sess.srv.metrics.rejected.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("reason", "inbox_full")))
			sess.logger.Warn("Command inbox full, dropping", "command", cmd.Command, "limit", sess.inbox.Limit())
		}
	}
}

func (sess *Session) stop() {
	sess.cancel()
}

func (sess *Session) shutdown() {
	sess.cancel()

	sess.mu.Lock()
	sess.engine.Reset()
	sess.inbox.Clear()
	sess.mu.Unlock()

	if err := sess.dispatcher.Close(); err != nil {
		sess.logger.Debug("Dispatcher close", "error", err)
	}
	_ = sess.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = sess.conn.Close()
	sess.logger.Info("Session closed")
}

func (sess *Session) setSpeed(v float64) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.engine.SetSpeedMultiplier(v)
}

func (sess *Session) setAILevel(level string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.engine.SetAILevel(level); err != nil {
		sess.logger.Warn("AI level not applied", "error", err)
	}
}

func (sess *Session) stat() monitor.SessionStat {
	sess.mu.Lock()
	st := sess.engine.Stats()
	sess.mu.Unlock()
	return monitor.SessionStat{
		ID:              sess.id,
		Engine:          st,
		LastTick:        time.Duration(sess.lastTick.Load()),
		Overruns:        sess.overruns.Load(),
		PendingCommands: sess.inbox.Len(),
	}
}
