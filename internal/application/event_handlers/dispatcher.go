package event_handlers

import (
	"context"
	"fmt"
	"sync"

	"pagebot-core-console/internal/domain"

	"github.com/rs/zerolog"
)

// Handler processes page events of the types it accepts
type Handler interface {
	CanHandle(eventType domain.PageEventType) bool
	Handle(ctx context.Context, event *domain.PageEvent) error
}

// Dispatcher routes page events to registered handlers
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher with no handlers
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// RegisterHandler adds a handler
func (d *Dispatcher) RegisterHandler(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Dispatch hands the event to every handler that accepts it.
// All handlers run; the first error is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, event *domain.PageEvent) error {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	var firstErr error
	handled := 0
	for _, h := range handlers {
		if !h.CanHandle(event.Type) {
			continue
		}
		handled++
		if err := h.Handle(ctx, event); err != nil {
			d.logger.Error().
				Err(err).
				Str("type", string(event.Type)).
				Str("pageId", event.PageID).
				Msg("Page event handler failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to handle %s event: %w", event.Type, err)
			}
		}
	}

	if handled == 0 {
		d.logger.Debug().Str("type", string(event.Type)).Msg("No handler for page event")
	}
	return firstErr
}

// Run dispatches every event received until the channel is closed. Closing the channel
// is how the owner stops it, so events already buffered are still handled.
func (d *Dispatcher) Run(events <-chan *domain.PageEvent) {
	for event := range events {
		_ = d.Dispatch(context.Background(), event)
	}
}
