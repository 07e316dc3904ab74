package memory

import (
	"context"
	"errors"
	"testing"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

func testSignal(id string, observedAt int64) *domain.Signal {
	return &domain.Signal{
		ID:           id,
		Chain:        "solana",
		TokenAddress: "MintAAA",
		Type:         domain.TypeNewListing,
		Token:        domain.TokenSnapshot{Symbol: "TEST", PriceUSD: 0.01},
		Score:        70,
		RiskFactors:  []string{"liquidity below $50k"},
		Sources:      []domain.SignalSource{{Platform: "dexscreener", ObservedAt: observedAt}},
		Metrics:      domain.SignalMetrics{PlatformCount: 1, Platforms: []string{"dexscreener"}},
		ObservedAt:   observedAt,
	}
}

func TestSignalStore_InsertAndGet(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sig := testSignal("sig1", 1000)
	if err := store.Insert(ctx, sig); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Score != 70 || got.TokenAddress != "MintAAA" {
		t.Errorf("unexpected signal: %+v", got)
	}

	// Duplicate insert
	if err := store.Insert(ctx, sig); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("duplicate insert err = %v, want ErrDuplicateKey", err)
	}

	// Missing id
	if _, err := store.GetByID(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing get err = %v, want ErrNotFound", err)
	}
}

func TestSignalStore_InvalidInput(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil insert err = %v, want ErrInvalidInput", err)
	}
	if err := store.Insert(ctx, &domain.Signal{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty id insert err = %v, want ErrInvalidInput", err)
	}
}

func TestSignalStore_GetRecent(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		sig := testSignal(id, int64(1000*(i+1)))
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}

	got, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("order = %s, %s; want c, b", got[0].ID, got[1].ID)
	}
}

func TestSignalStore_CopyOnRead(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSignal("sig1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "sig1")
	got.Score = 0
	got.RiskFactors[0] = "mutated"

	again, _ := store.GetByID(ctx, "sig1")
	if again.Score != 70 || again.RiskFactors[0] != "liquidity below $50k" {
		t.Error("store contents must not be affected by caller mutation")
	}
}

func TestTrackedTokenStore_UpsertReplaces(t *testing.T) {
	store := NewTrackedTokenStore()
	ctx := context.Background()

	tok := &domain.TrackedToken{Chain: "solana", TokenAddress: "MintAAA", Status: domain.StatusTracked, UpdatedAt: 1000}
	if err := store.Upsert(ctx, tok); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	tok.Status = domain.StatusDismissed
	tok.UpdatedAt = 2000
	if err := store.Upsert(ctx, tok); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "solana", "MintAAA")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.StatusDismissed {
		t.Errorf("status = %s, want dismissed", got.Status)
	}

	dismissed, _ := store.List(ctx, domain.StatusDismissed)
	if len(dismissed) != 1 {
		t.Errorf("dismissed count = %d, want 1", len(dismissed))
	}
	tracked, _ := store.List(ctx, domain.StatusTracked)
	if len(tracked) != 0 {
		t.Errorf("tracked count = %d, want 0", len(tracked))
	}

	if err := store.Delete(ctx, "solana", "MintAAA"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "solana", "MintAAA"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestRecommendationStore_Roundtrip(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	rec := &domain.Recommendation{
		SignalID:   "sig1",
		Action:     domain.ActionBuy,
		Confidence: 75,
		Reasoning:  []string{"confirmed on 2 platforms"},
		Model:      "rule-engine/v1",
		CreatedAt:  1000,
	}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, rec); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("duplicate insert err = %v, want ErrDuplicateKey", err)
	}

	got, err := store.GetBySignalID(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignalID failed: %v", err)
	}
	if got.Action != domain.ActionBuy || got.Confidence != 75 {
		t.Errorf("unexpected recommendation: %+v", got)
	}

	recent, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("recent count = %d, want 1", len(recent))
	}
}
