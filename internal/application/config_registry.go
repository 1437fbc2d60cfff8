package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/ports"

	"github.com/rs/zerolog"
)

// registrySnapshot is one full backend response. Snapshots are never mutated after publication.
type registrySnapshot struct {
	records   map[string]domain.ConfigRecord
	fetchedAt time.Time
}

// RegistryStatus describes the freshness of the cached configuration
type RegistryStatus struct {
	FetchedAt time.Time `json:"fetched_at"`
	Records   int       `json:"records"`
	LastError string    `json:"last_error,omitempty"`
}

// ConfigRegistry caches the backend's per-page configuration records for the current user.
// Every successful refresh replaces the whole mapping.
type ConfigRegistry struct {
	backend  ports.BackendClient
	events   ports.EventPublisher
	timeout  time.Duration
	logger   zerolog.Logger
	snapshot atomic.Pointer[registrySnapshot]

	errMu   sync.RWMutex
	lastErr error

	// swapMu orders snapshot swaps against Reset. generation is the login the
	// cached mapping belongs to.
	swapMu     sync.Mutex
	generation uint64
}

// NewConfigRegistry creates a registry with an empty snapshot
func NewConfigRegistry(
	backend ports.BackendClient,
	events ports.EventPublisher,
	timeout time.Duration,
	logger zerolog.Logger,
) *ConfigRegistry {
	r := &ConfigRegistry{
		backend: backend,
		events:  events,
		timeout: timeout,
		logger:  logger,
	}
	r.snapshot.Store(&registrySnapshot{records: map[string]domain.ConfigRecord{}})
	return r
}

// Refresh fetches the records for the session user and replaces the cached mapping.
// On failure the last good snapshot is kept.
//
// Results fetched for a session that a later login or a logout replaced are dropped,
// so a command finishing after a re-login cannot install the previous user's records.
func (r *ConfigRegistry) Refresh(ctx context.Context, session domain.Session) (map[string]domain.ConfigRecord, error) {
	if !r.Current(session) {
		return nil, r.stale(session)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	records, err := r.backend.ListConfigs(ctx, session)
	if err != nil && !r.Current(session) {
		return nil, r.stale(session)
	}
	if err != nil {
		err = domain.Classify(domain.KindFetchError, "", err)
		r.setLastError(err)
		registryRefreshTotal.WithLabelValues(outcomeLabel(err)).Inc()
		r.logger.Error().
			Err(err).
			Str("userId", session.UserID).
			Msg("Failed to refresh config registry, keeping last snapshot")
		r.publish(&domain.PageEvent{
			Type:      domain.EventRegistryRefreshFailed,
			UserID:    session.UserID,
			Error:     err.Error(),
			ErrorKind: domain.KindOf(err),
			Duration:  time.Since(start),
		})
		return nil, err
	}

	next := &registrySnapshot{
		records:   make(map[string]domain.ConfigRecord, len(records)),
		fetchedAt: time.Now(),
	}
	for _, rec := range records {
		if rec.PageID == "" {
			r.logger.Warn().Msg("Skipping config record without page id")
			continue
		}
		if _, dup := next.records[rec.PageID]; dup {
			r.logger.Warn().Str("pageId", rec.PageID).Msg("Duplicate config record in response, keeping the last one")
		}
		next.records[rec.PageID] = rec
	}

	r.swapMu.Lock()
	if session.Generation != r.generation {
		r.swapMu.Unlock()
		return nil, r.stale(session)
	}
	prev := r.snapshot.Swap(next)
	r.setLastError(nil)
	r.swapMu.Unlock()
	registryRefreshTotal.WithLabelValues("success").Inc()
	registryRecords.Set(float64(len(next.records)))

	r.logger.Info().
		Str("userId", session.UserID).
		Int("records", len(next.records)).
		Dur("duration", time.Since(start)).
		Msg("Config registry refreshed")

	r.publish(&domain.PageEvent{
		Type:     domain.EventRegistryRefreshed,
		UserID:   session.UserID,
		Records:  len(next.records),
		Duration: time.Since(start),
	})
	for pageID := range prev.records {
		if _, still := next.records[pageID]; !still {
			r.publish(&domain.PageEvent{
				Type:   domain.EventPageUninstalled,
				PageID: pageID,
				UserID: session.UserID,
			})
		}
	}

	return copyRecords(next.records), nil
}

// Has reports whether a page is installed according to the last good snapshot
func (r *ConfigRegistry) Has(pageID string) bool {
	_, ok := r.snapshot.Load().records[pageID]
	return ok
}

// Get returns the record of a page
func (r *ConfigRegistry) Get(pageID string) (domain.ConfigRecord, bool) {
	rec, ok := r.snapshot.Load().records[pageID]
	return rec, ok
}

// Snapshot returns a copy of the cached mapping
func (r *ConfigRegistry) Snapshot() map[string]domain.ConfigRecord {
	return copyRecords(r.snapshot.Load().records)
}

// Status reports when the snapshot was fetched and the last refresh error, if any
func (r *ConfigRegistry) Status() RegistryStatus {
	snap := r.snapshot.Load()
	status := RegistryStatus{
		FetchedAt: snap.fetchedAt,
		Records:   len(snap.records),
	}
	r.errMu.RLock()
	if r.lastErr != nil {
		status.LastError = r.lastErr.Error()
	}
	r.errMu.RUnlock()
	return status
}

// Reset drops the cached mapping and binds the registry to a login generation.
// Only sessions of that generation may refresh it afterwards; 0 binds it to no login.
func (r *ConfigRegistry) Reset(generation uint64) {
	r.swapMu.Lock()
	r.generation = generation
	r.snapshot.Store(&registrySnapshot{records: map[string]domain.ConfigRecord{}})
	r.setLastError(nil)
	r.swapMu.Unlock()
	registryRecords.Set(0)
}

// Current reports whether session belongs to the login the registry is bound to
func (r *ConfigRegistry) Current(session domain.Session) bool {
	r.swapMu.Lock()
	defer r.swapMu.Unlock()
	return session.Generation == r.generation
}

func (r *ConfigRegistry) stale(session domain.Session) error {
	r.logger.Debug().
		Str("userId", session.UserID).
		Uint64("generation", session.Generation).
		Msg("Dropping refresh of a replaced session")
	return domain.Errorf(domain.KindNoSession, "", "session of user %s was replaced", session.UserID)
}

func (r *ConfigRegistry) setLastError(err error) {
	r.errMu.Lock()
	r.lastErr = err
	r.errMu.Unlock()
}

func (r *ConfigRegistry) publish(event *domain.PageEvent) {
	if r.events == nil {
		return
	}
	event.OccurredAt = time.Now()
	r.events.Publish(event)
}

func copyRecords(in map[string]domain.ConfigRecord) map[string]domain.ConfigRecord {
	out := make(map[string]domain.ConfigRecord, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
