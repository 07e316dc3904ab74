package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

func testRecommendation(signalID string, createdAt int64) *domain.Recommendation {
	return &domain.Recommendation{
		SignalID:   signalID,
		Action:     domain.ActionBuy,
		Confidence: 75,
		Reasoning:  []string{"confirmed on 2 platforms", "liquidity above $50k"},
		Entry: domain.EntryStrategy{
			EntryPriceUSD:  0.0042,
			StopLossPct:    20,
			TakeProfitPct:  60,
			PositionSize:   domain.PositionSmall,
			MaxPositionUSD: 200,
			TimeHorizon:    domain.HorizonShort,
		},
		Risk: domain.RiskAnalysis{
			RugRisk:        30,
			VolatilityRisk: 45,
			LiquidityRisk:  20,
			OverallRisk:    domain.RiskMedium,
			Warnings:       []string{"price already up 80% in 24h"},
		},
		KeyObservations: []string{"volume concentrated in last hour"},
		Model:           "rule-engine/v1",
		CreatedAt:       createdAt,
	}
}

func TestRecommendationStore_Roundtrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	signals := NewSignalStore(pool)
	store := NewRecommendationStore(pool)
	ctx := context.Background()

	require.NoError(t, signals.Insert(ctx, testSignal("sig1", 1_700_000_000_000)))

	rec := testRecommendation("sig1", 1_700_000_060_000)
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetBySignalID(ctx, "sig1")
	require.NoError(t, err)
	require.Equal(t, rec.Action, got.Action)
	require.Equal(t, rec.Confidence, got.Confidence)
	require.Equal(t, rec.Reasoning, got.Reasoning)
	require.Equal(t, rec.Entry, got.Entry)
	require.Equal(t, rec.Risk, got.Risk)
	require.Equal(t, rec.KeyObservations, got.KeyObservations)
	require.Equal(t, rec.Model, got.Model)
}

func TestRecommendationStore_DuplicateAndMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	signals := NewSignalStore(pool)
	store := NewRecommendationStore(pool)
	ctx := context.Background()

	require.NoError(t, signals.Insert(ctx, testSignal("sig1", 1_700_000_000_000)))

	rec := testRecommendation("sig1", 1_700_000_060_000)
	require.NoError(t, store.Insert(ctx, rec))
	require.ErrorIs(t, store.Insert(ctx, rec), storage.ErrDuplicateKey)

	_, err := store.GetBySignalID(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecommendationStore_GetRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	signals := NewSignalStore(pool)
	store := NewRecommendationStore(pool)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, signals.Insert(ctx, testSignal(id, 1_700_000_000_000+int64(i)*60_000)))
		require.NoError(t, store.Insert(ctx, testRecommendation(id, 1_700_000_000_000+int64(i)*60_000)))
	}

	recent, err := store.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "c", recent[0].SignalID)
	require.Equal(t, "b", recent[1].SignalID)
}
