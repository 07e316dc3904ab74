// Package dexscreener adapts the public DEX Screener HTTP API. No API key
// is required; the platform enforces a per-minute rate limit which the
// shared request budget respects.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tokenradar/internal/domain"
	"tokenradar/internal/providers"
	"tokenradar/internal/scoring"
	"tokenradar/internal/solana"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.dexscreener.com"
	DefaultTimeout = 15 * time.Second

	platformName = "dexscreener"

	// sourceConfidence is the fixed confidence attached to observations;
	// DEX Screener reports market data but no quality score of its own.
	sourceConfidence = 70

	// maxBatchAddresses is the API limit for one token-data lookup.
	maxBatchAddresses = 30
)

// Client implements providers.Provider against the DEX Screener API.
type Client struct {
	baseURL string
	client  *http.Client
	budget  *providers.RequestBudget
	now     func() time.Time
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new DEX Screener client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	// 300 requests/minute published limit, no daily cap.
	c.budget = providers.NewRequestBudget(rate.Limit(5), 5, providers.UnlimitedBudget, c.now)
	return c
}

// Compile-time interface check.
var _ providers.Provider = (*Client)(nil)

// Name returns the platform identifier.
func (c *Client) Name() string { return platformName }

// Enabled always reports true; the public API needs no configuration.
func (c *Client) Enabled() bool { return true }

// RemainingRequests returns the remaining daily budget.
func (c *Client) RemainingRequests() int { return c.budget.Remaining() }

// tokenProfile is one entry from the token-profiles or token-boosts feeds.
type tokenProfile struct {
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
}

// pair is one trading pair from the token-data endpoint.
type pair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD string `json:"priceUsd"`
	Volume   struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap     float64 `json:"marketCap"`
	PairCreatedAt int64   `json:"pairCreatedAt"` // Unix ms
}

// NewListings returns signals for tokens from the latest profiles feed.
func (c *Client) NewListings(ctx context.Context, chain string) ([]*domain.Signal, error) {
	return c.fromFeed(ctx, chain, "/token-profiles/latest/v1", domain.TypeNewListing)
}

// Trending returns signals for tokens from the top boosts feed.
func (c *Client) Trending(ctx context.Context, chain string) ([]*domain.Signal, error) {
	return c.fromFeed(ctx, chain, "/token-boosts/top/v1", domain.TypeTrending)
}

// fromFeed resolves a profile feed to market data and builds signals.
func (c *Client) fromFeed(ctx context.Context, chain, feedPath string, sigType domain.SignalType) ([]*domain.Signal, error) {
	var profiles []tokenProfile
	if err := c.get(ctx, feedPath, &profiles); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedPath, err)
	}

	addresses := make([]string, 0, maxBatchAddresses)
	for _, p := range profiles {
		if p.ChainID != chain {
			continue
		}
		if chain == "solana" && !solana.IsValidAddress(p.TokenAddress) {
			continue
		}
		addresses = append(addresses, p.TokenAddress)
		if len(addresses) == maxBatchAddresses {
			break
		}
	}
	if len(addresses) == 0 {
		return nil, nil
	}

	var pairs []pair
	path := fmt.Sprintf("/tokens/v1/%s/%s", chain, strings.Join(addresses, ","))
	if err := c.get(ctx, path, &pairs); err != nil {
		return nil, fmt.Errorf("fetch token data: %w", err)
	}

	return c.buildSignals(chain, pairs, sigType), nil
}

// buildSignals maps pairs onto observations and scores them. Tokens trading
// in several pairs keep only their first (most liquid) pair; incomplete
// observations are dropped.
func (c *Client) buildSignals(chain string, pairs []pair, sigType domain.SignalType) []*domain.Signal {
	nowMs := c.now().UnixMilli()
	seen := make(map[string]struct{}, len(pairs))

	var signals []*domain.Signal
	for _, p := range pairs {
		addr := p.BaseToken.Address
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		price, err := strconv.ParseFloat(p.PriceUSD, 64)
		if err != nil {
			continue
		}
		raw, _ := json.Marshal(p)

		obs := scoring.Observation{
			Chain:        chain,
			TokenAddress: addr,
			Type:         sigType,
			Platform:     platformName,
			Confidence:   sourceConfidence,
			Token: domain.TokenSnapshot{
				Symbol:            p.BaseToken.Symbol,
				Name:              p.BaseToken.Name,
				PriceUSD:          price,
				MarketCapUSD:      p.MarketCap,
				LiquidityUSD:      p.Liquidity.USD,
				Volume24hUSD:      p.Volume.H24,
				PriceChange24hPct: p.PriceChange.H24,
				CreatedAt:         p.PairCreatedAt,
			},
			Raw: raw,
		}

		sig, err := scoring.Build(obs, nowMs)
		if err != nil {
			continue
		}
		signals = append(signals, sig)
	}
	return signals
}

// get performs a budgeted GET request and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, result any) error {
	if err := c.budget.Take(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
