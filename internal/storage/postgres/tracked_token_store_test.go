package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

func TestTrackedTokenStore_UpsertReplacesStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTrackedTokenStore(pool)
	ctx := context.Background()

	tok := &domain.TrackedToken{
		Chain:        "solana",
		TokenAddress: "So11111111111111111111111111111111111111112",
		Status:       domain.StatusTracked,
		UpdatedAt:    1_700_000_000_000,
	}
	require.NoError(t, store.Upsert(ctx, tok))

	tok.Status = domain.StatusDismissed
	tok.UpdatedAt = 1_700_000_060_000
	require.NoError(t, store.Upsert(ctx, tok))

	got, err := store.Get(ctx, tok.Chain, tok.TokenAddress)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDismissed, got.Status)
	require.Equal(t, int64(1_700_000_060_000), got.UpdatedAt)

	dismissed, err := store.List(ctx, domain.StatusDismissed)
	require.NoError(t, err)
	require.Len(t, dismissed, 1)

	tracked, err := store.List(ctx, domain.StatusTracked)
	require.NoError(t, err)
	require.Empty(t, tracked)
}

func TestTrackedTokenStore_DeleteAndMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTrackedTokenStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, "solana", "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	tok := &domain.TrackedToken{
		Chain:        "solana",
		TokenAddress: "So11111111111111111111111111111111111111112",
		Status:       domain.StatusTracked,
		UpdatedAt:    1_700_000_000_000,
	}
	require.NoError(t, store.Upsert(ctx, tok))
	require.NoError(t, store.Delete(ctx, tok.Chain, tok.TokenAddress))
	require.ErrorIs(t, store.Delete(ctx, tok.Chain, tok.TokenAddress), storage.ErrNotFound)
}
