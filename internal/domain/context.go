package domain

import "context"

type contextKey string

const commandIDKey contextKey = "command_id"

// WithCommandID attaches a correlation ID to the context
func WithCommandID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, commandIDKey, id)
}

// GetCommandIDFromContext returns the correlation ID, or "" when none is set
func GetCommandIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(commandIDKey).(string); ok {
		return id
	}
	return ""
}
