package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

func testSignal(id string, observedAt int64) *domain.Signal {
	return &domain.Signal{
		ID:           id,
		Chain:        "solana",
		TokenAddress: "So11111111111111111111111111111111111111112",
		Type:         domain.TypeVolumeSpike,
		Token: domain.TokenSnapshot{
			Symbol:            "TEST",
			Name:              "Test Token",
			PriceUSD:          0.0042,
			MarketCapUSD:      250_000,
			LiquidityUSD:      60_000,
			Volume24hUSD:      150_000,
			PriceChange24hPct: 80,
			HolderCount:       1200,
			CreatedAt:         observedAt - 3_600_000,
		},
		Score:       80,
		Urgency:     domain.UrgencyHigh,
		RiskLevel:   domain.RiskMedium,
		RiskFactors: []string{"token less than 6 hours old"},
		Sources: []domain.SignalSource{
			{
				Platform:   "dexscreener",
				Confidence: 80,
				ObservedAt: observedAt,
				Raw:        json.RawMessage(`{"pairAddress":"abc"}`),
			},
		},
		Metrics: domain.SignalMetrics{
			PlatformCount: 1,
			Platforms:     []string{"dexscreener"},
			VolumeScore:   80,
		},
		ObservedAt: observedAt,
	}
}

func TestSignalStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)
	ctx := context.Background()

	sig := testSignal("sig1", 1_700_000_000_000)
	require.NoError(t, store.Insert(ctx, sig))

	got, err := store.GetByID(ctx, "sig1")
	require.NoError(t, err)
	require.Equal(t, sig.Score, got.Score)
	require.Equal(t, sig.Urgency, got.Urgency)
	require.Equal(t, sig.RiskLevel, got.RiskLevel)
	require.Equal(t, sig.RiskFactors, got.RiskFactors)
	require.Equal(t, sig.Sources, got.Sources)
	require.Equal(t, sig.Metrics, got.Metrics)
	require.Equal(t, sig.Token, got.Token)
}

func TestSignalStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)
	ctx := context.Background()

	sig := testSignal("sig1", 1_700_000_000_000)
	require.NoError(t, store.Insert(ctx, sig))
	require.ErrorIs(t, store.Insert(ctx, sig), storage.ErrDuplicateKey)
}

func TestSignalStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStore_GetByTokenOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		sig := testSignal(id, 1_700_000_000_000+int64(i)*60_000)
		require.NoError(t, store.Insert(ctx, sig))
	}

	got, err := store.GetByToken(ctx, "solana", "So11111111111111111111111111111111111111112")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "c", got[0].ID)
	require.Equal(t, "a", got[2].ID)

	recent, err := store.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "c", recent[0].ID)
}
