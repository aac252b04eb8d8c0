// Package requestid carries a request-scoped ID and a bound log entry on
// context.Context so every layer of the pipeline logs with the same ID.
package requestid

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// New generates a fresh opaque request ID.
func New() string {
	return uuid.NewString()
}

// WithID attaches a request ID and a derived log entry to ctx.
func WithID(ctx context.Context, id string, base *logrus.Logger) context.Context {
	entry := base.WithField("request_id", id)
	return context.WithValue(ctx, ctxKey{}, &state{id: id, entry: entry})
}

type state struct {
	id    string
	entry *logrus.Entry
}

// FromContext returns the request ID carried on ctx, or "" if none.
func FromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKey{}).(*state); ok {
		return s.id
	}
	return ""
}

// Logger returns the per-request log entry carried on ctx, falling back to
// a bare logrus.StandardLogger entry when the context carries none (e.g. in
// tests that don't go through the request middleware).
func Logger(ctx context.Context) *logrus.Entry {
	if s, ok := ctx.Value(ctxKey{}).(*state); ok {
		return s.entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
