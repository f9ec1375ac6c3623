package server

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/vajra-sim/vajra/internal/server"

// metrics holds the tick instruments shared by every session.
type metrics struct {
	tickDuration metric.Float64Histogram
	tickOverrun  metric.Int64Counter
	sessions     metric.Int64UpDownCounter
	rejected     metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	var (
		out metrics
		err error
	)
	out.tickDuration, err = m.Float64Histogram(
		"engine.tick.duration",
		metric.WithDescription("Wall time of one simulation tick including the snapshot write"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	out.tickOverrun, err = m.Int64Counter(
		"engine.tick.overrun",
		metric.WithDescription("Ticks that took longer than the tick interval"),
	)
	if err != nil {
		return nil, err
	}
	out.sessions, err = m.Int64UpDownCounter(
		"server.sessions.active",
		metric.WithDescription("Open simulation sockets"),
	)
	if err != nil {
		return nil, err
	}
	out.rejected, err = m.Int64Counter(
		"server.commands.rejected",
		metric.WithDescription("Client messages that failed to parse or overflowed the inbox"),
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
