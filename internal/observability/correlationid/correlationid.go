// Package correlationid propagates a per-operation id (a crawler tick, a
// pipeline run, a reparse job) through a context.Context so every log line
// emitted while handling that operation can be tied back to it.
package correlationid

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const idKey contextKey = "correlation_id"

// New generates a fresh correlation id.
func New() string {
	return uuid.New().String()
}

// FromContext retrieves the correlation id from ctx, or "" if none is set.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(idKey).(string); ok {
		return id
	}
	return ""
}

// WithID attaches id to ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}
