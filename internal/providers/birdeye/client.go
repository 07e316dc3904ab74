// Package birdeye adapts the Birdeye HTTP API. The API requires a key and
// enforces a hard daily request quota on the free tier, so every call goes
// through the shared request budget and new-listing enrichment is capped.
package birdeye

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
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
	DefaultBaseURL    = "https://public-api.birdeye.so"
	DefaultTimeout    = 15 * time.Second
	DefaultDailyQuota = 1000

	platformName = "birdeye"

	// sourceConfidence reflects Birdeye's richer per-token data
	// (holder counts, overview metrics) compared to pure pair feeds.
	sourceConfidence = 75

	// maxEnrichments caps per-call token_overview lookups so one
	// new-listings pass cannot drain the daily quota.
	maxEnrichments = 10
)

// ErrNoAPIKey is returned when the adapter is called without a key.
var ErrNoAPIKey = errors.New("birdeye api key not configured")

// Client implements providers.Provider against the Birdeye API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	budget  *providers.RequestBudget
	now     func() time.Time

	dailyQuota int
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithDailyQuota overrides the daily request quota.
func WithDailyQuota(n int) Option {
	return func(c *Client) {
		c.dailyQuota = n
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Birdeye client. An empty apiKey yields a disabled
// adapter that errors on use.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: DefaultTimeout},
		now:        time.Now,
		dailyQuota: DefaultDailyQuota,
	}
	for _, opt := range opts {
		opt(c)
	}
	// 1 request/second on the free tier.
	c.budget = providers.NewRequestBudget(rate.Limit(1), 2, c.dailyQuota, c.now)
	return c
}

// Compile-time interface check.
var _ providers.Provider = (*Client)(nil)

// Name returns the platform identifier.
func (c *Client) Name() string { return platformName }

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// RemainingRequests returns the remaining daily budget.
func (c *Client) RemainingRequests() int { return c.budget.Remaining() }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type newListingItem struct {
	Address          string  `json:"address"`
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Liquidity        float64 `json:"liquidity"`
	LiquidityAddedAt string  `json:"liquidityAddedAt"`
}

type tokenOverview struct {
	Price             float64 `json:"price"`
	Volume24hUSD      float64 `json:"v24hUSD"`
	PriceChange24hPct float64 `json:"priceChange24hPercent"`
	Liquidity         float64 `json:"liquidity"`
	MarketCap         float64 `json:"mc"`
	HolderCount       int     `json:"holder"`
}

type trendingToken struct {
	Address           string  `json:"address"`
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Volume24hUSD      float64 `json:"volume24hUSD"`
	PriceChange24hPct float64 `json:"price24hChangePercent"`
	Liquidity         float64 `json:"liquidity"`
	MarketCap         float64 `json:"marketcap"`
}

// NewListings fetches the new-listings feed and enriches each token with an
// overview lookup for market data.
func (c *Client) NewListings(ctx context.Context, chain string) ([]*domain.Signal, error) {
	if !c.Enabled() {
		return nil, ErrNoAPIKey
	}

	var feed struct {
		Items []newListingItem `json:"items"`
	}
	if err := c.get(ctx, chain, "/defi/v2/tokens/new_listing", url.Values{"limit": {"20"}}, &feed); err != nil {
		return nil, fmt.Errorf("fetch new listings: %w", err)
	}

	nowMs := c.now().UnixMilli()
	var signals []*domain.Signal
	enriched := 0

	for _, item := range feed.Items {
		if enriched >= maxEnrichments {
			break
		}
		if chain == "solana" && !solana.IsValidAddress(item.Address) {
			continue
		}

		var ov tokenOverview
		err := c.get(ctx, chain, "/defi/token_overview", url.Values{"address": {item.Address}}, &ov)
		if err != nil {
			if errors.Is(err, providers.ErrBudgetExhausted) {
				break
			}
			continue
		}
		enriched++

		raw, _ := json.Marshal(item)
		obs := scoring.Observation{
			Chain:        chain,
			TokenAddress: item.Address,
			Type:         domain.TypeNewListing,
			Platform:     platformName,
			Confidence:   sourceConfidence,
			Token: domain.TokenSnapshot{
				Symbol:            item.Symbol,
				Name:              item.Name,
				PriceUSD:          ov.Price,
				MarketCapUSD:      ov.MarketCap,
				LiquidityUSD:      ov.Liquidity,
				Volume24hUSD:      ov.Volume24hUSD,
				PriceChange24hPct: ov.PriceChange24hPct,
				HolderCount:       ov.HolderCount,
				CreatedAt:         parseListedAt(item.LiquidityAddedAt),
			},
			Raw: raw,
		}

		sig, err := scoring.Build(obs, nowMs)
		if err != nil {
			continue
		}
		signals = append(signals, sig)
	}

	return signals, nil
}

// Trending fetches the trending feed; it carries market data inline.
func (c *Client) Trending(ctx context.Context, chain string) ([]*domain.Signal, error) {
	if !c.Enabled() {
		return nil, ErrNoAPIKey
	}

	var feed struct {
		Tokens []trendingToken `json:"tokens"`
	}
	params := url.Values{"sort_by": {"rank"}, "sort_type": {"asc"}, "limit": {"20"}}
	if err := c.get(ctx, chain, "/defi/token_trending", params, &feed); err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}

	nowMs := c.now().UnixMilli()
	var signals []*domain.Signal

	for _, tok := range feed.Tokens {
		if chain == "solana" && !solana.IsValidAddress(tok.Address) {
			continue
		}

		raw, _ := json.Marshal(tok)
		obs := scoring.Observation{
			Chain:        chain,
			TokenAddress: tok.Address,
			Type:         domain.TypeTrending,
			Platform:     platformName,
			Confidence:   sourceConfidence,
			Token: domain.TokenSnapshot{
				Symbol:            tok.Symbol,
				Name:              tok.Name,
				PriceUSD:          tok.Price,
				MarketCapUSD:      tok.MarketCap,
				LiquidityUSD:      tok.Liquidity,
				Volume24hUSD:      tok.Volume24hUSD,
				PriceChange24hPct: tok.PriceChange24hPct,
			},
			Raw: raw,
		}

		sig, err := scoring.Build(obs, nowMs)
		if err != nil {
			continue
		}
		signals = append(signals, sig)
	}

	return signals, nil
}

// get performs a budgeted GET request and decodes the data envelope.
func (c *Client) get(ctx context.Context, chain, path string, params url.Values, result any) error {
	if err := c.budget.Take(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("x-chain", chain)

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

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("api reported failure: %s", string(body))
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}

// parseListedAt converts the feed's listing timestamp to Unix ms.
// Returns 0 when absent or unparseable (unknown age).
func parseListedAt(s string) int64 {
	if s == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
