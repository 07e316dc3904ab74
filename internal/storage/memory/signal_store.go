// Package memory provides in-memory store implementations used by tests
// and by deployments that run without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal // keyed by signal id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.Signal),
	}
}

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.Signal) error {
	if sig == nil || sig.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	sigCopy := copySignal(sig)
	s.data[sig.ID] = sigCopy
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, signalID string) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copySignal(sig), nil
}

// GetByToken retrieves all signals for a token, ordered by observed_at DESC.
func (s *SignalStore) GetByToken(_ context.Context, chain, tokenAddress string) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if sig.Chain == chain && sig.TokenAddress == tokenAddress {
			result = append(result, copySignal(sig))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt > result[j].ObservedAt
	})

	return result, nil
}

// GetRecent retrieves the most recent signals, ordered by observed_at DESC.
func (s *SignalStore) GetRecent(_ context.Context, limit int) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Signal, 0, len(s.data))
	for _, sig := range s.data {
		result = append(result, copySignal(sig))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt > result[j].ObservedAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// copySignal deep-copies a signal including its slices.
func copySignal(s *domain.Signal) *domain.Signal {
	c := *s
	c.RiskFactors = append([]string(nil), s.RiskFactors...)
	c.Sources = append([]domain.SignalSource(nil), s.Sources...)
	c.Metrics.Platforms = append([]string(nil), s.Metrics.Platforms...)
	return &c
}

// Verify interface compliance at compile time.
var _ storage.SignalStore = (*SignalStore)(nil)
