package ports

import (
	"context"

	"pagebot-core-console/internal/domain"
)

// CommandRepository defines the interface for command audit persistence
type CommandRepository interface {
	// Record stores one command outcome
	Record(ctx context.Context, record *domain.CommandRecord) error

	// ListByPage returns the most recent outcomes for a page, newest first
	ListByPage(ctx context.Context, pageID string, limit int64) ([]*domain.CommandRecord, error)
}

// InFlightGuard serializes mutating commands per key.
// Acquire returns ok=false when another holder owns the key.
type InFlightGuard interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
	Held(ctx context.Context, key string) bool
}

// EventPublisher broadcasts page events
type EventPublisher interface {
	Publish(event *domain.PageEvent)
}
