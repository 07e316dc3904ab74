package memory

import (
	"context"
	"sort"
	"sync"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

// RecommendationStore is an in-memory implementation of storage.RecommendationStore.
type RecommendationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Recommendation // keyed by signal id
}

// NewRecommendationStore creates a new in-memory recommendation store.
func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{
		data: make(map[string]*domain.Recommendation),
	}
}

// Insert adds a new recommendation. Returns ErrDuplicateKey if signal_id exists.
func (s *RecommendationStore) Insert(_ context.Context, r *domain.Recommendation) error {
	if r == nil || r.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	recCopy := copyRecommendation(r)
	s.data[r.SignalID] = recCopy
	return nil
}

// GetBySignalID retrieves the recommendation for a signal. Returns ErrNotFound if not exists.
func (s *RecommendationStore) GetBySignalID(_ context.Context, signalID string) (*domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyRecommendation(r), nil
}

// GetRecent retrieves the most recent recommendations, ordered by created_at DESC.
func (s *RecommendationStore) GetRecent(_ context.Context, limit int) ([]*domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Recommendation, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyRecommendation(r))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// copyRecommendation deep-copies a recommendation including its slices.
func copyRecommendation(r *domain.Recommendation) *domain.Recommendation {
	c := *r
	c.Reasoning = append([]string(nil), r.Reasoning...)
	c.KeyObservations = append([]string(nil), r.KeyObservations...)
	c.Risk.Warnings = append([]string(nil), r.Risk.Warnings...)
	return &c
}

// Verify interface compliance at compile time.
var _ storage.RecommendationStore = (*RecommendationStore)(nil)
