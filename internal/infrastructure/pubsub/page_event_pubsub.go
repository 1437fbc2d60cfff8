package pubsub

import (
	"context"
	"sync"
	"sync/atomic"

	"pagebot-core-console/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const defaultBuffer = 32

var eventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pagebot_page_events_dropped_total",
	Help: "Page events not delivered because a subscriber fell behind.",
})

// PageEventFilter selects the events a subscriber receives. The zero value passes everything.
type PageEventFilter struct {
	Types  []domain.PageEventType
	PageID string // registry-wide events carry no page and always pass
}

// Match reports whether event passes the filter
func (f PageEventFilter) Match(event *domain.PageEvent) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == event.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return f.PageID == "" || event.PageID == "" || event.PageID == f.PageID
}

// Subscription delivers matching events on Events until its context ends or the bus
// closes. Events is closed last, after everything already buffered.
type Subscription struct {
	Events <-chan *domain.PageEvent

	events  chan *domain.PageEvent
	filter  PageEventFilter
	dropped atomic.Int64
	once    sync.Once
}

// Dropped is the number of events this subscriber missed because its buffer was full
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// PageEventPubSub fans page events out to the console's event stream and the dispatcher.
// Publish never waits on a subscriber.
type PageEventPubSub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
	buffer int
	logger zerolog.Logger
}

// NewPageEventPubSub creates an open bus
func NewPageEventPubSub(logger zerolog.Logger) *PageEventPubSub {
	return &PageEventPubSub{
		subs:   make(map[*Subscription]struct{}),
		buffer: defaultBuffer,
		logger: logger,
	}
}

// Subscribe registers a subscriber until ctx ends. On a closed bus the returned
// subscription is already closed.
func (ps *PageEventPubSub) Subscribe(ctx context.Context, filter PageEventFilter) *Subscription {
	events := make(chan *domain.PageEvent, ps.buffer)
	sub := &Subscription{Events: events, events: events, filter: filter}

	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		sub.close()
		return sub
	}
	ps.subs[sub] = struct{}{}
	count := len(ps.subs)
	ps.mu.Unlock()

	ps.logger.Debug().
		Strs("types", eventTypes(filter.Types)).
		Str("pageId", filter.PageID).
		Int("subscribers", count).
		Msg("Page event subscriber added")

	go func() {
		<-ctx.Done()
		ps.remove(sub)
	}()
	return sub
}

// Publish hands event to every matching subscriber that has room for it
func (ps *PageEventPubSub) Publish(event *domain.PageEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for sub := range ps.subs {
		if !sub.filter.Match(event) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			sub.dropped.Add(1)
			eventsDroppedTotal.Inc()
			ps.logger.Warn().
				Str("type", string(event.Type)).
				Str("pageId", event.PageID).
				Msg("Page event subscriber is behind, event dropped")
		}
	}
}

// Close ends every subscription. Later publishes are ignored.
func (ps *PageEventPubSub) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.closed = true
	for sub := range ps.subs {
		delete(ps.subs, sub)
		sub.close()
	}
}

// Subscribers returns the number of live subscriptions
func (ps *PageEventPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs)
}

func (ps *PageEventPubSub) remove(sub *Subscription) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if _, ok := ps.subs[sub]; !ok {
		return
	}
	delete(ps.subs, sub)
	sub.close()
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.events) })
}

func eventTypes(types []domain.PageEventType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
