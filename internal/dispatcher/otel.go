package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/vajra-sim/vajra/internal/dispatcher"

// Setting adjusts a Dispatcher at construction.
type Setting func(*Dispatcher)

// WithMeter records dispatcher metrics on m instead of the global meter.
func WithMeter(m metric.Meter) Setting {
	return func(d *Dispatcher) { d.meter = m }
}

// instruments are the per-command counters and the queue depth gauge.
type instruments struct {
	queueDepth metric.Int64ObservableGauge
	processed  metric.Int64Counter
	failed     metric.Int64Counter
	dropped    metric.Int64Counter
	callback   metric.Registration
}

func commandAttr(command string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", command))
}

func (d *Dispatcher) instrument() error {
	m := d.meter
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&d.inst.processed, "dispatcher.commands.processed", "Commands whose handler succeeded"},
		{&d.inst.failed, "dispatcher.commands.failed", "Commands whose handler returned an error"},
		{&d.inst.dropped, "dispatcher.commands.dropped", "Commands rejected by a full queue"},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return fmt.Errorf("creating %s: %w", c.name, err)
		}
	}

	d.inst.queueDepth, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered handler queue"),
	)
	if err != nil {
		return fmt.Errorf("creating dispatcher.queue.size: %w", err)
	}
	d.inst.callback, err = m.RegisterCallback(d.observeQueues, d.inst.queueDepth)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}
	return nil
}

func (d *Dispatcher) observeQueues(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for command, q := range d.buffers {
		o.ObserveInt64(d.inst.queueDepth, int64(len(q)), commandAttr(command))
	}
	return nil
}
