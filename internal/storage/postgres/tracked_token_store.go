package postgres

import (
	"context"
	"fmt"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

// TrackedTokenStore implements storage.TrackedTokenStore using PostgreSQL.
type TrackedTokenStore struct {
	pool *Pool
}

// NewTrackedTokenStore creates a new TrackedTokenStore.
func NewTrackedTokenStore(pool *Pool) *TrackedTokenStore {
	return &TrackedTokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TrackedTokenStore = (*TrackedTokenStore)(nil)

// Upsert records or replaces the disposition for a token.
func (s *TrackedTokenStore) Upsert(ctx context.Context, t *domain.TrackedToken) error {
	if t == nil || t.Chain == "" || t.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tracked_tokens (chain, token_address, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chain, token_address)
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query, t.Chain, t.TokenAddress, string(t.Status), t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert tracked token: %w", err)
	}
	return nil
}

// Get retrieves the disposition for a token. Returns ErrNotFound if none.
func (s *TrackedTokenStore) Get(ctx context.Context, chain, tokenAddress string) (*domain.TrackedToken, error) {
	query := `
		SELECT chain, token_address, status, updated_at
		FROM tracked_tokens
		WHERE chain = $1 AND token_address = $2
	`

	var t domain.TrackedToken
	var statusStr string
	err := s.pool.QueryRow(ctx, query, chain, tokenAddress).Scan(
		&t.Chain, &t.TokenAddress, &statusStr, &t.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tracked token: %w", err)
	}

	t.Status = domain.TrackStatus(statusStr)
	return &t, nil
}

// List retrieves all tokens with the given status, ordered by updated_at DESC.
func (s *TrackedTokenStore) List(ctx context.Context, status domain.TrackStatus) ([]*domain.TrackedToken, error) {
	query := `
		SELECT chain, token_address, status, updated_at
		FROM tracked_tokens
		WHERE status = $1
		ORDER BY updated_at DESC, token_address ASC
	`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list tracked tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.TrackedToken
	for rows.Next() {
		var t domain.TrackedToken
		var statusStr string
		if err := rows.Scan(&t.Chain, &t.TokenAddress, &statusStr, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tracked token row: %w", err)
		}
		t.Status = domain.TrackStatus(statusStr)
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked token rows: %w", err)
	}
	return tokens, nil
}

// Delete removes the disposition for a token. Returns ErrNotFound if none.
func (s *TrackedTokenStore) Delete(ctx context.Context, chain, tokenAddress string) error {
	query := `DELETE FROM tracked_tokens WHERE chain = $1 AND token_address = $2`

	tag, err := s.pool.Exec(ctx, query, chain, tokenAddress)
	if err != nil {
		return fmt.Errorf("delete tracked token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
