package storage

import (
	"context"

	"tokenradar/internal/domain"
)

// SignalStore persists signals that passed filtering and were emitted to
// the advisory layer. History is append-only.
type SignalStore interface {
	// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, s *domain.Signal) error

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, signalID string) (*domain.Signal, error)

	// GetByToken retrieves all signals for a token, ordered by observed_at DESC.
	GetByToken(ctx context.Context, chain, tokenAddress string) ([]*domain.Signal, error)

	// GetRecent retrieves the most recent signals, ordered by observed_at DESC.
	GetRecent(ctx context.Context, limit int) ([]*domain.Signal, error)
}

// RecommendationStore persists advisory results for signals that crossed
// the notification threshold.
type RecommendationStore interface {
	// Insert adds a new recommendation. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, r *domain.Recommendation) error

	// GetBySignalID retrieves the recommendation for a signal.
	// Returns ErrNotFound if not exists.
	GetBySignalID(ctx context.Context, signalID string) (*domain.Recommendation, error)

	// GetRecent retrieves the most recent recommendations, ordered by created_at DESC.
	GetRecent(ctx context.Context, limit int) ([]*domain.Recommendation, error)
}

// TrackedTokenStore records operator track/dismiss dispositions.
// Unlike the append-only stores, dispositions are replaced on repeat actions.
type TrackedTokenStore interface {
	// Upsert records or replaces the disposition for a token.
	Upsert(ctx context.Context, t *domain.TrackedToken) error

	// Get retrieves the disposition for a token. Returns ErrNotFound if none.
	Get(ctx context.Context, chain, tokenAddress string) (*domain.TrackedToken, error)

	// List retrieves all tokens with the given status, ordered by updated_at DESC.
	List(ctx context.Context, status domain.TrackStatus) ([]*domain.TrackedToken, error)

	// Delete removes the disposition for a token. Returns ErrNotFound if none.
	Delete(ctx context.Context, chain, tokenAddress string) error
}

// SignalArchiveStore keeps an append-only archive of analyzed signals and
// their advisory outcomes, one row per signal per scan cycle.
type SignalArchiveStore interface {
	// InsertCycle archives all rows from one scan cycle in a single batch.
	InsertCycle(ctx context.Context, rows []*domain.ArchiveRow) error

	// CountByToken returns how many archived cycles mention a token.
	CountByToken(ctx context.Context, chain, tokenAddress string) (int64, error)
}
