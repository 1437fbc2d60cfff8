package application

import (
	"sync"

	"pagebot-core-console/internal/domain"

	"github.com/rs/zerolog"
)

// FieldNormalizer rewrites an accepted field value before it enters a draft
type FieldNormalizer func(value string) string

// DraftStore holds uncommitted per-page edits. Nothing here is ever persisted.
type DraftStore struct {
	mu          sync.RWMutex
	drafts      map[string]domain.Draft
	normalizers map[domain.Field]FieldNormalizer
	logger      zerolog.Logger
}

// NewDraftStore creates an empty draft store
func NewDraftStore(logger zerolog.Logger) *DraftStore {
	return &DraftStore{
		drafts:      make(map[string]domain.Draft),
		normalizers: make(map[domain.Field]FieldNormalizer),
		logger:      logger,
	}
}

// WithNormalizer registers a normalizer for one field
func (s *DraftStore) WithNormalizer(field domain.Field, fn FieldNormalizer) *DraftStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.normalizers[field] = fn
	return s
}

// SetField records an edit. An empty value is a no-op: editing never clears a field.
func (s *DraftStore) SetField(pageID string, field domain.Field, value string) error {
	if pageID == "" {
		return domain.Errorf(domain.KindUnknownPage, "", "page id is required")
	}
	if _, err := domain.ParseField(string(field)); err != nil {
		return err
	}
	if value == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fn, ok := s.normalizers[field]; ok {
		if normalized := fn(value); normalized != "" {
			value = normalized
		}
	}

	d := s.drafts[pageID]
	d.PageID = pageID
	d.PageFields = d.PageFields.With(field, value)
	d.Revision++
	s.drafts[pageID] = d

	s.logger.Debug().
		Str("pageId", pageID).
		Str("field", string(field)).
		Uint64("revision", d.Revision).
		Msg("Draft field updated")
	return nil
}

// Get returns the draft of a page, or false when there is none
func (s *DraftStore) Get(pageID string) (domain.Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[pageID]
	return d, ok
}

// Clear drops the draft of a page
func (s *DraftStore) Clear(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, pageID)
}

// ClearIfRevision drops the draft only if no edit landed after revision.
// It returns false when newer edits were kept.
func (s *DraftStore) ClearIfRevision(pageID string, revision uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[pageID]
	if !ok {
		return true
	}
	if d.Revision != revision {
		s.logger.Debug().
			Str("pageId", pageID).
			Uint64("savedRevision", revision).
			Uint64("currentRevision", d.Revision).
			Msg("Keeping draft edited during save")
		return false
	}
	delete(s.drafts, pageID)
	return true
}

// Len returns the number of pages with a draft
func (s *DraftStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// Reset drops every draft
func (s *DraftStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = make(map[string]domain.Draft)
}
