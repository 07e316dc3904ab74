// Package domain holds the core data model shared by every layer:
// aggregated signals, advisory recommendations and their ordered enums.
package domain

import "encoding/json"

// TokenSnapshot is the immutable market snapshot taken at observation time.
// Fields are not kept live after the signal is built.
type TokenSnapshot struct {
	Symbol            string
	Name              string
	PriceUSD          float64
	MarketCapUSD      float64
	LiquidityUSD      float64
	Volume24hUSD      float64
	PriceChange24hPct float64
	HolderCount       int
	CreatedAt         int64 // Unix ms; 0 when the provider does not report it
}

// SignalSource records one provider's contribution to a signal.
// Sources are append-only and preserved through merges.
type SignalSource struct {
	Platform   string
	Confidence int   // 0-100, provider-reported
	ObservedAt int64 // Unix ms
	Raw        json.RawMessage `json:",omitempty"`
}

// SignalMetrics holds multi-source confirmation counters. Each sub-score
// takes the per-dimension maximum when signals are merged.
type SignalMetrics struct {
	PlatformCount int
	Platforms     []string
	VolumeScore   int
	PriceScore    int
	SocialScore   int
	WhaleScore    int
}

// Signal is one observation, or a merged set of observations, about a single
// token at a point in time. Signals are created fresh each scan cycle and
// never mutated after filtering.
type Signal struct {
	ID           string
	Chain        string
	TokenAddress string
	Type         SignalType
	Token        TokenSnapshot
	Score        int // 0-100
	Urgency      Urgency
	RiskLevel    RiskLevel
	RiskFactors  []string
	Sources      []SignalSource
	Metrics      SignalMetrics
	ObservedAt   int64 // Unix ms
}

// Key returns the dedup identity: chain plus token address.
func (s *Signal) Key() string {
	return s.Chain + ":" + s.TokenAddress
}

// AgeHours returns the token age in hours at the given instant (Unix ms).
// Returns -1 when the creation time is unknown.
func (s *Signal) AgeHours(nowMs int64) float64 {
	if s.Token.CreatedAt <= 0 {
		return -1
	}
	return float64(nowMs-s.Token.CreatedAt) / 3600000.0
}

// IsNewToken reports whether the token is at most 24 hours old.
// Unknown creation time counts as not new.
func (s *Signal) IsNewToken(nowMs int64) bool {
	age := s.AgeHours(nowMs)
	return age >= 0 && age <= 24
}
