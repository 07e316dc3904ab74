package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"tokenradar/internal/domain"
)

type fakeProvider struct {
	name     string
	enabled  bool
	listings []*domain.Signal
	trending []*domain.Signal
	err      error
}

func (f *fakeProvider) Name() string           { return f.name }
func (f *fakeProvider) Enabled() bool          { return f.enabled }
func (f *fakeProvider) RemainingRequests() int { return 100 }

func (f *fakeProvider) NewListings(context.Context, string) ([]*domain.Signal, error) {
	return f.listings, f.err
}

func (f *fakeProvider) Trending(context.Context, string) ([]*domain.Signal, error) {
	return f.trending, f.err
}

func signalFrom(platform, address string, score int) *domain.Signal {
	return &domain.Signal{
		ID:           platform + ":" + address,
		Chain:        "solana",
		TokenAddress: address,
		Type:         domain.TypeVolumeSpike,
		Token: domain.TokenSnapshot{
			Symbol:       "TEST",
			PriceUSD:     0.01,
			LiquidityUSD: 60_000,
			Volume24hUSD: 150_000,
		},
		Score:       score,
		Urgency:     domain.UrgencyMedium,
		RiskLevel:   domain.RiskMedium,
		RiskFactors: []string{"market cap below $100k"},
		Sources: []domain.SignalSource{
			{Platform: platform, Confidence: 70, ObservedAt: 1000},
		},
		Metrics: domain.SignalMetrics{
			PlatformCount: 1,
			Platforms:     []string{platform},
			VolumeScore:   score,
		},
		ObservedAt: 1000,
	}
}

func newTestAggregator(t *testing.T, clock *time.Time, provs ...*fakeProvider) *Aggregator {
	t.Helper()

	opts := Options{
		MinScore:          60,
		SuppressionWindow: time.Hour,
		Clock:             func() time.Time { return *clock },
	}
	for _, p := range provs {
		opts.Providers = append(opts.Providers, p)
	}
	return New(opts)
}

func TestAggregator_MergesAcrossPlatforms(t *testing.T) {
	now := time.UnixMilli(10_000_000)
	a := newTestAggregator(t, &now,
		&fakeProvider{name: "dexscreener", enabled: true,
			listings: []*domain.Signal{signalFrom("dexscreener", "MintAAA", 70)}},
		&fakeProvider{name: "birdeye", enabled: true,
			listings: []*domain.Signal{signalFrom("birdeye", "MintAAA", 74)}},
	)

	out, err := a.NewListings(context.Background(), "solana")
	if err != nil {
		t.Fatalf("NewListings failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1 merged signal", len(out))
	}

	sig := out[0]
	// avg(70, 74) = 72, plus one extra platform worth of confirmation bonus
	if sig.Score != 82 {
		t.Errorf("score = %d, want 82", sig.Score)
	}
	if sig.Metrics.PlatformCount != 2 {
		t.Errorf("platform count = %d, want 2", sig.Metrics.PlatformCount)
	}
	if len(sig.Sources) != 2 {
		t.Errorf("sources = %d, want 2", len(sig.Sources))
	}
	if len(sig.RiskFactors) != 1 {
		t.Errorf("risk factors = %v, want deduplicated union", sig.RiskFactors)
	}
}

func TestMergeGroup_OrderIndependentID(t *testing.T) {
	a := signalFrom("dexscreener", "MintAAA", 70)
	b := signalFrom("birdeye", "MintAAA", 74)

	m1 := mergeGroup([]*domain.Signal{a, b})
	m2 := mergeGroup([]*domain.Signal{b, a})

	if m1.ID != m2.ID {
		t.Errorf("merged IDs differ by input order: %s vs %s", m1.ID, m2.ID)
	}
	if m1.Score != m2.Score {
		t.Errorf("merged scores differ by input order: %d vs %d", m1.Score, m2.Score)
	}
}

func TestMergeGroup_BonusCapped(t *testing.T) {
	group := []*domain.Signal{
		signalFrom("dexscreener", "MintAAA", 70),
		signalFrom("birdeye", "MintAAA", 70),
		signalFrom("pumpfun", "MintAAA", 70),
		signalFrom("extra", "MintAAA", 70),
	}

	merged := mergeGroup(group)
	// bonus would be 30 for 4 platforms; capped at 20
	if merged.Score != 90 {
		t.Errorf("score = %d, want 90", merged.Score)
	}
}

func TestAggregator_SuppressionWindow(t *testing.T) {
	now := time.UnixMilli(10_000_000)
	p := &fakeProvider{name: "dexscreener", enabled: true,
		listings: []*domain.Signal{signalFrom("dexscreener", "MintAAA", 70)}}
	a := newTestAggregator(t, &now, p)
	ctx := context.Background()

	out, _ := a.NewListings(ctx, "solana")
	if len(out) != 1 {
		t.Fatalf("first pass len = %d, want 1", len(out))
	}

	// Same token inside the window is suppressed.
	now = now.Add(30 * time.Minute)
	out, _ = a.NewListings(ctx, "solana")
	if len(out) != 0 {
		t.Fatalf("suppressed pass len = %d, want 0", len(out))
	}

	// After the window it may notify again.
	now = now.Add(31 * time.Minute)
	out, _ = a.NewListings(ctx, "solana")
	if len(out) != 1 {
		t.Fatalf("post-window pass len = %d, want 1", len(out))
	}
}

func TestAggregator_SuppressionPruning(t *testing.T) {
	now := time.UnixMilli(10_000_000)
	p := &fakeProvider{name: "dexscreener", enabled: true,
		listings: []*domain.Signal{signalFrom("dexscreener", "MintAAA", 70)}}
	a := newTestAggregator(t, &now, p)
	ctx := context.Background()

	a.NewListings(ctx, "solana")
	if len(a.suppression) != 1 {
		t.Fatalf("suppression entries = %d, want 1", len(a.suppression))
	}

	now = now.Add(25 * time.Hour)
	p.listings = nil
	a.NewListings(ctx, "solana")
	if len(a.suppression) != 0 {
		t.Errorf("suppression entries = %d, want 0 after pruning", len(a.suppression))
	}
}

func TestAggregator_FilterChain(t *testing.T) {
	lowScore := signalFrom("dexscreener", "MintLOW", 59)

	extreme79 := signalFrom("dexscreener", "MintEX1", 79)
	extreme79.RiskLevel = domain.RiskExtreme

	extreme85 := signalFrom("dexscreener", "MintEX2", 85)
	extreme85.RiskLevel = domain.RiskExtreme

	dead := signalFrom("dexscreener", "MintDEAD", 70)
	dead.Token.LiquidityUSD = 4_000
	dead.Token.Volume24hUSD = 500

	now := time.UnixMilli(10_000_000)
	a := newTestAggregator(t, &now, &fakeProvider{
		name: "dexscreener", enabled: true,
		listings: []*domain.Signal{lowScore, extreme79, extreme85, dead},
	})

	out, err := a.NewListings(context.Background(), "solana")
	if err != nil {
		t.Fatalf("NewListings failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len = %d, want only the high-scoring extreme signal", len(out))
	}
	if out[0].TokenAddress != "MintEX2" {
		t.Errorf("survivor = %s, want MintEX2", out[0].TokenAddress)
	}
}

func TestAggregator_ProviderFailureSkipped(t *testing.T) {
	now := time.UnixMilli(10_000_000)
	a := newTestAggregator(t, &now,
		&fakeProvider{name: "broken", enabled: true, err: errors.New("boom")},
		&fakeProvider{name: "dexscreener", enabled: true,
			listings: []*domain.Signal{signalFrom("dexscreener", "MintAAA", 70)}},
		&fakeProvider{name: "disabled", enabled: false,
			listings: []*domain.Signal{signalFrom("disabled", "MintBBB", 99)}},
	)

	out, err := a.NewListings(context.Background(), "solana")
	if err != nil {
		t.Fatalf("NewListings failed: %v", err)
	}
	if len(out) != 1 || out[0].TokenAddress != "MintAAA" {
		t.Fatalf("out = %+v, want only the healthy provider's signal", out)
	}

	statuses := a.PlatformStatus()
	if len(statuses) != 3 {
		t.Fatalf("statuses = %d, want 3", len(statuses))
	}
	if statuses[2].Enabled {
		t.Error("disabled provider must report Enabled=false")
	}
}

func TestAggregator_SortedByScoreDesc(t *testing.T) {
	now := time.UnixMilli(10_000_000)
	a := newTestAggregator(t, &now, &fakeProvider{
		name: "dexscreener", enabled: true,
		listings: []*domain.Signal{
			signalFrom("dexscreener", "MintB", 65),
			signalFrom("dexscreener", "MintA", 90),
			signalFrom("dexscreener", "MintC", 75),
		},
	})

	out, _ := a.NewListings(context.Background(), "solana")
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[0].Score != 90 || out[1].Score != 75 || out[2].Score != 65 {
		t.Errorf("order = %d,%d,%d; want 90,75,65", out[0].Score, out[1].Score, out[2].Score)
	}
}
