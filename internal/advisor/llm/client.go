// Package llm implements an advisory backend backed by an OpenAI-compatible
// chat completions endpoint. The model receives one signal per request and
// must answer with the recommendation JSON shape; replies are decoded and
// sanitized by the advisor package.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"tokenradar/internal/advisor"
	"tokenradar/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 45 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultTemperature = 0.3
)

// ErrCircuitOpen is returned while the breaker rejects requests after
// consecutive upstream failures.
var ErrCircuitOpen = errors.New("llm: circuit breaker open")

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	temperature float64
	now         func() time.Time
	breaker     *gobreaker.CircuitBreaker
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates an LLM advisory client for the given endpoint and model.
func NewClient(baseURL, apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		temperature: DefaultTemperature,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return c
}

// Compile-time interface check.
var _ advisor.Backend = (*Client)(nil)

// Name returns the backend identifier.
func (c *Client) Name() string { return "llm" }

// Analyze asks the model for a recommendation on one signal.
func (c *Client) Analyze(ctx context.Context, sig *domain.Signal) (*domain.Recommendation, error) {
	reply, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, buildPrompt(sig))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	return advisor.DecodeRecommendation(extractJSON(reply.(string)), sig, c.model, c.now().UnixMilli())
}

// chatRequest is the OpenAI chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the completions response we read.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// complete performs the chat completion with retries and exponential backoff.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("retryable status %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		var chat chatResponse
		if err := json.Unmarshal(respBody, &chat); err != nil {
			return "", fmt.Errorf("unmarshal response: %w", err)
		}
		if chat.Error != nil {
			return "", fmt.Errorf("api error (%s): %s", chat.Error.Type, chat.Error.Message)
		}
		if len(chat.Choices) == 0 {
			return "", errors.New("empty choices in response")
		}

		return chat.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

const systemPrompt = `You are a crypto token trade analyst. Respond with a single JSON object and nothing else, using this exact shape:
{"action":"strong_buy|buy|watch|avoid","confidence":0-100,"reasoning":["..."],"entry_strategy":{"entry_price_usd":0.0,"stop_loss_pct":0.0,"take_profit_pct":0.0,"position_size":"small|medium|large","max_position_usd":0.0,"time_horizon":"scalp|short|medium|long"},"risk_analysis":{"rug_risk":0-100,"volatility_risk":0-100,"liquidity_risk":0-100,"overall_risk":"low|medium|high|extreme","warnings":["..."]},"key_observations":["..."]}`

// buildPrompt renders one signal as the user message.
func buildPrompt(sig *domain.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Token %s (%s) on %s, address %s.\n",
		sig.Token.Symbol, sig.Token.Name, sig.Chain, sig.TokenAddress)
	fmt.Fprintf(&b, "Signal type %s, score %d/100, urgency %s, pre-filter risk %s.\n",
		sig.Type, sig.Score, sig.Urgency, sig.RiskLevel)
	fmt.Fprintf(&b, "Price $%.8f, market cap $%.0f, liquidity $%.0f, 24h volume $%.0f, 24h change %.1f%%, holders %d.\n",
		sig.Token.PriceUSD, sig.Token.MarketCapUSD, sig.Token.LiquidityUSD,
		sig.Token.Volume24hUSD, sig.Token.PriceChange24hPct, sig.Token.HolderCount)
	fmt.Fprintf(&b, "Seen on %d platform(s): %s.\n",
		sig.Metrics.PlatformCount, strings.Join(sig.Metrics.Platforms, ", "))
	if len(sig.RiskFactors) > 0 {
		fmt.Fprintf(&b, "Known risk factors: %s.\n", strings.Join(sig.RiskFactors, "; "))
	}
	b.WriteString("Analyze this signal and answer with the JSON object.")
	return b.String()
}

// extractJSON strips markdown code fences and surrounding prose, leaving the
// first top-level JSON object. Models wrap replies despite instructions.
func extractJSON(reply string) []byte {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return []byte(reply)
	}
	return []byte(reply[start : end+1])
}
