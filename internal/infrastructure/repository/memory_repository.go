package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"pagebot-core-console/internal/domain"
)

// MemoryCommandRepository keeps the latest command outcomes in process.
// Used when no MongoDB is configured.
type MemoryCommandRepository struct {
	mu       sync.RWMutex
	records  []*domain.CommandRecord
	capacity int
	nextID   int64
}

// NewMemoryCommandRepository keeps at most capacity records
func NewMemoryCommandRepository(capacity int) *MemoryCommandRepository {
	return &MemoryCommandRepository{capacity: capacity}
}

// Record stores one command outcome, evicting the oldest past capacity
func (r *MemoryCommandRepository) Record(_ context.Context, record *domain.CommandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	cp := *record
	cp.ID = strconv.FormatInt(r.nextID, 10)
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = time.Now()
	}
	record.ID = cp.ID

	r.records = append(r.records, &cp)
	if r.capacity > 0 && len(r.records) > r.capacity {
		r.records = r.records[len(r.records)-r.capacity:]
	}
	return nil
}

// ListByPage returns the most recent outcomes for a page, newest first
func (r *MemoryCommandRepository) ListByPage(_ context.Context, pageID string, limit int64) ([]*domain.CommandRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.CommandRecord{}
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].PageID != pageID {
			continue
		}
		cp := *r.records[i]
		out = append(out, &cp)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}
