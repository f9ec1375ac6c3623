package logging

import (
	"context"
	"log/slog"
)

// AttrsFunc returns attributes evaluated at log time, such as the current
// simulation clock of a session.
type AttrsFunc func() []slog.Attr

type ctxAttrsKey struct{}

// ContextWithAttrs returns a copy of ctx carrying attrs. ContextHandler adds
// them to every record logged with that context.
func ContextWithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

// ContextHandler wraps another handler and injects context-scoped and
// dynamic attributes.
type ContextHandler struct {
	inner   slog.Handler
	dynamic AttrsFunc
}

// NewContextHandler creates a handler that adds dynamic attributes to each
// record. dynamic may be nil.
func NewContextHandler(inner slog.Handler, dynamic AttrsFunc) *ContextHandler {
	return &ContextHandler{
		inner:   inner,
		dynamic: dynamic,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds context and dynamic attributes and delegates to the inner
// handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxAttrsKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	if h.dynamic != nil {
		r.AddAttrs(h.dynamic()...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:   h.inner.WithAttrs(attrs),
		dynamic: h.dynamic,
	}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:   h.inner.WithGroup(name),
		dynamic: h.dynamic,
	}
}
