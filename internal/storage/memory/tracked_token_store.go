package memory

import (
	"context"
	"sort"
	"sync"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

// TrackedTokenStore is an in-memory implementation of storage.TrackedTokenStore.
type TrackedTokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TrackedToken // keyed by chain:address
}

// NewTrackedTokenStore creates a new in-memory tracked token store.
func NewTrackedTokenStore() *TrackedTokenStore {
	return &TrackedTokenStore{
		data: make(map[string]*domain.TrackedToken),
	}
}

// Upsert records or replaces the disposition for a token.
func (s *TrackedTokenStore) Upsert(_ context.Context, t *domain.TrackedToken) error {
	if t == nil || t.Chain == "" || t.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tCopy := *t
	s.data[t.Key()] = &tCopy
	return nil
}

// Get retrieves the disposition for a token. Returns ErrNotFound if none.
func (s *TrackedTokenStore) Get(_ context.Context, chain, tokenAddress string) (*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[chain+":"+tokenAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tCopy := *t
	return &tCopy, nil
}

// List retrieves all tokens with the given status, ordered by updated_at DESC.
func (s *TrackedTokenStore) List(_ context.Context, status domain.TrackStatus) ([]*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedToken
	for _, t := range s.data {
		if t.Status == status {
			tCopy := *t
			result = append(result, &tCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt > result[j].UpdatedAt
	})

	return result, nil
}

// Delete removes the disposition for a token. Returns ErrNotFound if none.
func (s *TrackedTokenStore) Delete(_ context.Context, chain, tokenAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chain + ":" + tokenAddress
	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}

	delete(s.data, key)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.TrackedTokenStore = (*TrackedTokenStore)(nil)
