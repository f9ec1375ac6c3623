package otel

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/vajra-sim/vajra/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false, LogWriter: &bytes.Buffer{}})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("engine"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_NoSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: defaultServiceName})
	assert.ErrorIs(t, err, ErrNoSinks)
}

func TestNew_LocalWriterExportsLogsAndMetrics(t *testing.T) {
	var out bytes.Buffer
	reader := sdkmetric.NewManualReader()
	p, err := New(Config{
		Enabled:        true,
		ServiceName:    defaultServiceName,
		BatchTimeout:   time.Second,
		MetricInterval: time.Hour,
		LogWriter:      &out,
		Readers:        []sdkmetric.Reader{reader},
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	ctx := context.Background()
	overrun, err := p.Meter("github.com/vajra-sim/vajra/internal/server").Int64Counter("engine.tick.overrun")
	require.NoError(t, err)
	overrun.Add(ctx, 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.EqualValues(t, 2, sum.DataPoints[0].Value)

	require.NoError(t, p.Flush(ctx))
	assert.Contains(t, out.String(), "engine.tick.overrun", "periodic reader writes to the local writer on flush")
	assert.NoError(t, p.Shutdown(ctx))
}

func TestMeter_NoReadersIsNoop(t *testing.T) {
	p := &Provider{enabled: true}
	var m metric.Meter = p.Meter("x")
	assert.Equal(t, noop.Meter{}, m)
}

func TestFromConfig(t *testing.T) {
	var got error
	cfg := FromConfig(config.OTelConfig{
		Enabled:        true,
		BatchTimeout:   5 * time.Second,
		MetricInterval: 15 * time.Second,
		Endpoint:       "collector:4318",
	}, nil, func(err error) { got = err })

	assert.True(t, cfg.Enabled)
	assert.Equal(t, defaultServiceName, cfg.ServiceName)
	assert.Equal(t, 15*time.Second, cfg.MetricInterval)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	require.NotNil(t, cfg.OnError)
	cfg.OnError(errors.New("export failed"))
	assert.EqualError(t, got, "export failed")
}
