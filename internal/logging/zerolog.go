package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ZerologAdapter exposes a zerolog.Logger through the key-value logging
// methods the result dispatcher and storage backends expect.
type ZerologAdapter struct {
	zl zerolog.Logger
}

// NewZerologAdapter wraps zl. Component, when non-empty, is attached to
// every entry.
func NewZerologAdapter(zl zerolog.Logger, component string) *ZerologAdapter {
	if component != "" {
		zl = zl.With().Str("component", component).Logger()
	}
	return &ZerologAdapter{zl: zl}
}

func (a *ZerologAdapter) Debug(msg string, kv ...any) { emit(a.zl.Debug(), msg, kv) }
func (a *ZerologAdapter) Info(msg string, kv ...any)  { emit(a.zl.Info(), msg, kv) }
func (a *ZerologAdapter) Warn(msg string, kv ...any)  { emit(a.zl.Warn(), msg, kv) }
func (a *ZerologAdapter) Error(msg string, kv ...any) { emit(a.zl.Error(), msg, kv) }

// emit appends kv to ev in order. Errors go through AnErr so hooks and
// console writers render them as errors. A dangling value is kept under
// "!BADKEY" the way slog does.
func emit(ev *zerolog.Event, msg string, kv []any) {
	if ev == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			ev = ev.Interface("!BADKEY", kv[i])
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		switch v := kv[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
