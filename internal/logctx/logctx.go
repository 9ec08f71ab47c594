// Package logctx carries structured log attributes inside a
// context.Context so that every log record written while handling a
// request is tagged with the same request id, method, path, and so on.
//
// The attributes are immutable: With returns a derived context and never
// changes the parent. A value added for the duration of one call is gone
// as soon as the caller stops using the derived context, and two requests
// can never observe each other's attributes.
package logctx

import (
	"context"
	"log/slog"
)

// Attribute keys shared by the middleware, service and error mapper.
const (
	KeyRequestID = "request_id"
	KeyMethod    = "method"
	KeyPath      = "path"
	KeyClientIP  = "client_ip"
	KeyOperation = "operation"
	KeyErrorType = "error_type"
)

type ctxKey struct{}

// With returns a copy of ctx whose log context holds attrs in addition to
// the ones already present. Later values win over earlier ones with the
// same key when read through Value.
func With(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}

	parent := Attrs(ctx)
	merged := make([]slog.Attr, 0, len(parent)+len(attrs))
	merged = append(merged, parent...)
	merged = append(merged, attrs...)

	return context.WithValue(ctx, ctxKey{}, merged)
}

// Attrs returns the attributes stored in ctx. The returned slice must not
// be modified.
func Attrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	return attrs
}

// Value returns the most recent value stored under key, as a string.
func Value(ctx context.Context, key string) (string, bool) {
	attrs := Attrs(ctx)
	for i := len(attrs) - 1; i >= 0; i-- {
		if attrs[i].Key == key {
			return attrs[i].Value.String(), true
		}
	}
	return "", false
}

// RequestID returns the correlation id of the request ctx belongs to, or
// "" outside of a request.
func RequestID(ctx context.Context) string {
	id, _ := Value(ctx, KeyRequestID)
	return id
}

// Handler is a slog.Handler that appends the context's attributes to
// every record before passing it on.
type Handler struct {
	next slog.Handler
}

// NewHandler wraps next.
func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if attrs := Attrs(ctx); len(attrs) > 0 {
		record = record.Clone()
		record.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

var _ slog.Handler = (*Handler)(nil)
