package birdeye

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tokenradar/internal/domain"
)

const mintSOL = "So11111111111111111111111111111111111111112"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/defi/v2/tokens/new_listing", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "test-key" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"success": true, "data": {"items": [
			{"address": %q, "symbol": "SOL", "name": "Wrapped SOL",
			 "liquidity": 900000, "liquidityAddedAt": "2025-06-01T10:00:00Z"},
			{"address": "bogus", "symbol": "BAD", "name": "Bad", "liquidity": 1}
		]}}`, mintSOL)
	})
	mux.HandleFunc("/defi/token_overview", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") != mintSOL {
			http.Error(w, "unknown token", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"success": true, "data": {
			"price": 150.25, "v24hUSD": 250000, "priceChange24hPercent": 12.5,
			"liquidity": 900000, "mc": 70000000, "holder": 5000
		}}`)
	})
	mux.HandleFunc("/defi/token_trending", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"success": true, "data": {"tokens": [
			{"address": %q, "symbol": "SOL", "name": "Wrapped SOL",
			 "price": 150.25, "volume24hUSD": 600000, "price24hChangePercent": 5,
			 "liquidity": 900000, "marketcap": 70000000}
		]}}`, mintSOL)
	})

	return httptest.NewServer(mux)
}

func TestClient_NewListings(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	client := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithClock(func() time.Time { return now }),
	)

	signals, err := client.NewListings(context.Background(), "solana")
	if err != nil {
		t.Fatalf("NewListings failed: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("len = %d, want 1 (invalid address skipped)", len(signals))
	}

	sig := signals[0]
	if sig.Type != domain.TypeNewListing {
		t.Errorf("type = %s, want new_listing", sig.Type)
	}
	if sig.Token.HolderCount != 5000 {
		t.Errorf("holders = %d, want enriched 5000", sig.Token.HolderCount)
	}
	if got := sig.Token.CreatedAt; got != now.Add(-time.Hour).UnixMilli() {
		t.Errorf("created at = %d, want listing time one hour before now", got)
	}
	// one hour old: new-token bonus applies
	if sig.Urgency != domain.UrgencyCritical {
		t.Errorf("urgency = %s, want critical for new token with high volume", sig.Urgency)
	}
}

func TestClient_Trending(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	signals, err := client.Trending(context.Background(), "solana")
	if err != nil {
		t.Fatalf("Trending failed: %v", err)
	}
	if len(signals) != 1 || signals[0].Type != domain.TypeTrending {
		t.Fatalf("want one trending signal, got %+v", signals)
	}
	if signals[0].Metrics.SocialScore == 0 {
		t.Error("trending signal should carry a social sub-score")
	}
}

func TestClient_DisabledWithoutKey(t *testing.T) {
	client := NewClient("")

	if client.Enabled() {
		t.Error("Enabled = true without api key")
	}
	if _, err := client.NewListings(context.Background(), "solana"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestClient_QuotaStopsEnrichment(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	// Quota of 1: the feed fetch consumes it, leaving none for overviews.
	client := NewClient("test-key", WithBaseURL(srv.URL), WithDailyQuota(1))

	signals, err := client.NewListings(context.Background(), "solana")
	if err != nil {
		t.Fatalf("NewListings failed: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("len = %d, want 0 when quota blocks enrichment", len(signals))
	}
	if got := client.RemainingRequests(); got != 0 {
		t.Errorf("RemainingRequests = %d, want 0", got)
	}
}
