package advisor

import (
	"encoding/json"
	"fmt"

	"tokenradar/internal/domain"
)

// recommendationWire is the JSON shape delegated backends must produce.
// Every enum field is coerced defensively on decode; a sloppy model reply
// must degrade to conservative defaults, never to an accidental buy.
type recommendationWire struct {
	Action     string   `json:"action"`
	Confidence int      `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
	Entry      struct {
		EntryPriceUSD  float64 `json:"entry_price_usd"`
		StopLossPct    float64 `json:"stop_loss_pct"`
		TakeProfitPct  float64 `json:"take_profit_pct"`
		PositionSize   string  `json:"position_size"`
		MaxPositionUSD float64 `json:"max_position_usd"`
		TimeHorizon    string  `json:"time_horizon"`
	} `json:"entry_strategy"`
	Risk struct {
		RugRisk        int      `json:"rug_risk"`
		VolatilityRisk int      `json:"volatility_risk"`
		LiquidityRisk  int      `json:"liquidity_risk"`
		OverallRisk    string   `json:"overall_risk"`
		Warnings       []string `json:"warnings"`
	} `json:"risk_analysis"`
	KeyObservations []string `json:"key_observations"`
}

// DecodeRecommendation parses and sanitizes a delegated backend's JSON reply
// into a typed Recommendation for the given signal. Malformed JSON is an
// error; out-of-range numbers and unknown enum values are coerced.
func DecodeRecommendation(data []byte, sig *domain.Signal, model string, nowMs int64) (*domain.Recommendation, error) {
	var wire recommendationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}

	entry := domain.EntryStrategy{
		EntryPriceUSD:  wire.Entry.EntryPriceUSD,
		StopLossPct:    wire.Entry.StopLossPct,
		TakeProfitPct:  wire.Entry.TakeProfitPct,
		PositionSize:   domain.ParsePositionSize(wire.Entry.PositionSize),
		MaxPositionUSD: wire.Entry.MaxPositionUSD,
		TimeHorizon:    domain.ParseTimeHorizon(wire.Entry.TimeHorizon),
	}

	// Strategy sanity: prices must be positive, stop-loss stays within
	// 10-30%, take-profit defaults to the fixed 2:1 ratio.
	if entry.EntryPriceUSD <= 0 {
		entry.EntryPriceUSD = sig.Token.PriceUSD * 1.02
	}
	if entry.StopLossPct < 10 {
		entry.StopLossPct = 10
	}
	if entry.StopLossPct > 30 {
		entry.StopLossPct = 30
	}
	if entry.TakeProfitPct <= 0 {
		entry.TakeProfitPct = entry.StopLossPct * 2
	}
	if entry.MaxPositionUSD <= 0 {
		entry.MaxPositionUSD = maxPositionSmall
	}

	return &domain.Recommendation{
		SignalID:   sig.ID,
		Action:     domain.ParseAction(wire.Action),
		Confidence: domain.Clamp100(wire.Confidence),
		Reasoning:  wire.Reasoning,
		Entry:      entry,
		Risk: domain.RiskAnalysis{
			RugRisk:        domain.Clamp100(wire.Risk.RugRisk),
			VolatilityRisk: domain.Clamp100(wire.Risk.VolatilityRisk),
			LiquidityRisk:  domain.Clamp100(wire.Risk.LiquidityRisk),
			OverallRisk:    domain.ParseRiskLevel(wire.Risk.OverallRisk),
			Warnings:       wire.Risk.Warnings,
		},
		KeyObservations: wire.KeyObservations,
		Model:           model,
		CreatedAt:       nowMs,
	}, nil
}
