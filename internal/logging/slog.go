package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName identifies this process in exported logs.
const ServiceName = "vajra-server"

// Indirections for tests.
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// Options selects the sinks SlogManager.Setup attaches.
type Options struct {
	// Output receives the local log stream; stdout when nil.
	Output io.Writer
	Level  string
	// Format is "json" or "text" (default).
	Format string
	// Provider adds the OTel bridge when non-nil.
	Provider *sdklog.LoggerProvider
	// Extra sinks such as Graylog.
	Extra []slog.Handler
}

// SlogManager owns the process logger. Storage backends, the monitor and
// the server sessions all log through it.
type SlogManager struct {
	logger   *slog.Logger
	level    slog.LevelVar
	provider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case, falling back to info.
func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if t, ok := a.Value.Any().(time.Time); ok && a.Key == slog.TimeKey {
		return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup (re)builds the logger from opts. It may be called again to move
// logging to another output.
func (m *SlogManager) Setup(opts Options) {
	m.level.Set(parseLevel(opts.Level))
	m.provider = opts.Provider

	out := opts.Output
	if out == nil {
		out = osStdout
	}
	ho := &slog.HandlerOptions{Level: &m.level, ReplaceAttr: utcTime}

	var local slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		local = slog.NewJSONHandler(out, ho)
	} else {
		local = slog.NewTextHandler(out, ho)
	}

	sinks := append([]slog.Handler{local}, opts.Extra...)
	if opts.Provider != nil {
		sinks = append(sinks, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(opts.Provider)))
	}

	m.logger = slog.New(NewFanout(sinks...))
	m.logger.Info("Logging initialized", "level", m.level.Level().String(), "sinks", len(sinks))
}

// SetLevel changes the local sink level without rebuilding handlers.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(parseLevel(level))
}

// Level returns the current local sink level.
func (m *SlogManager) Level() slog.Level {
	return m.level.Level()
}

// Logger returns slog.Default until Setup has run.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush exports pending OTel records.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}

// WriteLog logs data at the named level, tagged with the calling function.
// It is a no-op before Setup.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "function", functionName)
}
