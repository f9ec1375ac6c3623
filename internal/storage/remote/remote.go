// Package remote forwards result records to a collector over a websocket
// and waits for the collector to acknowledge each one.
package remote

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/pkg/core"
	"github.com/vajra-sim/vajra/pkg/streaming"
)

// DefaultAckTimeout bounds how long RecordResult waits for the collector.
const DefaultAckTimeout = 10 * time.Second

// Backend sends results to a collector.
type Backend struct {
	conn       *connection
	cfg        config.RemoteConfig
	instance   string
	ackTimeout time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used by the connection.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.conn.logger = l }
}

// WithAckTimeout overrides DefaultAckTimeout.
func WithAckTimeout(d time.Duration) Option {
	return func(b *Backend) { b.ackTimeout = d }
}

// WithInstance sets the name sent in the hello message.
func WithInstance(name string) Option {
	return func(b *Backend) { b.instance = name }
}

// New creates a remote backend for cfg.
func New(cfg config.RemoteConfig, opts ...Option) *Backend {
	b := &Backend{
		conn:       newConnection(slog.Default()),
		cfg:        cfg,
		instance:   "vajra-server",
		ackTimeout: DefaultAckTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init connects to the collector and introduces this instance.
func (b *Backend) Init() error {
	_, hello, err := marshalEnvelope(streaming.TypeHello, streaming.HelloPayload{Instance: b.instance})
	if err != nil {
		return err
	}
	return b.conn.dial(b.cfg.URL, b.cfg.Secret, hello)
}

// Close disconnects from the collector.
func (b *Backend) Close() error {
	return b.conn.close()
}

// RecordResult sends r and waits for its ack.
func (b *Backend) RecordResult(r *core.ResultRecord) error {
	id, data, err := marshalEnvelope(streaming.TypeResult, streaming.ResultPayload(*r))
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(id, data, b.ackTimeout)
}

// marshalEnvelope wraps payload in an Envelope with a fresh id.
func marshalEnvelope(msgType string, payload any) (string, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	id := uuid.NewString()
	data, err := json.Marshal(streaming.Envelope{Type: msgType, ID: id, Payload: raw})
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return id, data, nil
}
