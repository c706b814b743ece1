// Package correlation propagates a per-request correlation id through a
// context.Context, so every log line and outbound job tied to one inbound
// webhook request carries the same id without threading an extra parameter
// through every call.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const idKey ctxKey = 1

// New generates a fresh correlation id.
func New() string {
	return uuid.NewString()
}

// WithID returns a context carrying id, retrievable with FromContext.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// FromContext returns the correlation id carried by ctx, or "" if none was
// ever attached.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(idKey).(string); ok {
		return id
	}
	return ""
}

// FromContextOrNew returns the correlation id carried by ctx, generating and
// attaching a new one (returned alongside the updated context) if none was
// present.
func FromContextOrNew(ctx context.Context) (string, context.Context) {
	if id := FromContext(ctx); id != "" {
		return id, ctx
	}
	id := New()
	return id, WithID(ctx, id)
}
