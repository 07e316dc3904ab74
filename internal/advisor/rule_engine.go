package advisor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"tokenradar/internal/domain"
)

// RuleEngineModel identifies recommendations produced by the rule engine.
const RuleEngineModel = "rule-engine/v1"

// Position caps by risk/score band.
const (
	maxPositionLarge    = 1000.0
	maxPositionMedium   = 500.0
	maxPositionSmall    = 200.0
	maxPositionNewToken = 300.0
)

// RuleEngineOptions configures a RuleEngine.
type RuleEngineOptions struct {
	Clock      func() time.Time
	Logger     zerolog.Logger
	BatchDelay time.Duration
}

// RuleEngine is the deterministic advisory backend. It is always available
// and never fails, which makes it the router's guaranteed fallback.
type RuleEngine struct {
	now        func() time.Time
	log        zerolog.Logger
	batchDelay time.Duration
}

// NewRuleEngine creates a RuleEngine, applying defaults.
func NewRuleEngine(opts RuleEngineOptions) *RuleEngine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = 500 * time.Millisecond
	}
	return &RuleEngine{
		now:        opts.Clock,
		log:        opts.Logger,
		batchDelay: opts.BatchDelay,
	}
}

// Compile-time interface check.
var _ Backend = (*RuleEngine)(nil)

// Name returns the backend identifier.
func (e *RuleEngine) Name() string { return "rules" }

// marketSummary holds the derived flags the decision steps share.
type marketSummary struct {
	volLiqRatio       float64
	liquidityAdequate bool // liquidity above 10% of market cap
	holdersAdequate   bool // more than 500 holders
	multiPlatform     bool
	isNew             bool
}

// Analyze deterministically computes a recommendation for the signal.
func (e *RuleEngine) Analyze(_ context.Context, sig *domain.Signal) (*domain.Recommendation, error) {
	nowMs := e.now().UnixMilli()
	sum := summarize(sig, nowMs)
	risk := e.riskAnalysis(sig, sum, nowMs)
	entry := e.entryStrategy(sig, sum, risk)
	action := decideAction(sig.Score, risk.OverallRisk)
	confidence := confidenceFor(sig.Score, sum, risk.OverallRisk)

	return &domain.Recommendation{
		SignalID:        sig.ID,
		Action:          action,
		Confidence:      confidence,
		Reasoning:       reasoningFor(sig, sum, action),
		Entry:           entry,
		Risk:            risk,
		KeyObservations: observationsFor(sig, sum),
		Model:           RuleEngineModel,
		CreatedAt:       nowMs,
	}, nil
}

// AnalyzeBatch analyzes signals sequentially with an inter-item delay.
// The rule engine itself cannot fail, so the result is always 1:1.
func (e *RuleEngine) AnalyzeBatch(ctx context.Context, signals []*domain.Signal) ([]*domain.Recommendation, error) {
	recs := make([]*domain.Recommendation, 0, len(signals))
	for i, sig := range signals {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.batchDelay):
			}
		}
		rec, err := e.Analyze(ctx, sig)
		if err != nil {
			e.log.Warn().Err(err).Str("signal_id", sig.ID).Msg("rule analysis failed, skipping")
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func summarize(sig *domain.Signal, nowMs int64) marketSummary {
	sum := marketSummary{
		multiPlatform: sig.Metrics.PlatformCount >= 2,
		isNew:         sig.IsNewToken(nowMs),
	}
	if sig.Token.LiquidityUSD > 0 {
		sum.volLiqRatio = sig.Token.Volume24hUSD / sig.Token.LiquidityUSD
	}
	sum.liquidityAdequate = sig.Token.MarketCapUSD > 0 &&
		sig.Token.LiquidityUSD > 0.1*sig.Token.MarketCapUSD
	sum.holdersAdequate = sig.Token.HolderCount > 500
	return sum
}

// riskAnalysis recomputes risk at the advisory layer. Weights differ from
// the adapter-level pre-filter on purpose: this is the refined assessment
// the final decision is based on.
func (e *RuleEngine) riskAnalysis(sig *domain.Signal, sum marketSummary, nowMs int64) domain.RiskAnalysis {
	rug := 0
	age := sig.AgeHours(nowMs)
	switch {
	case age >= 0 && age < 1:
		rug += 40
	case age >= 0 && age < 6:
		rug += 25
	case age >= 0 && age < 24:
		rug += 15
	}
	switch {
	case sig.Token.LiquidityUSD < 10_000:
		rug += 30
	case sig.Token.LiquidityUSD < 50_000:
		rug += 15
	}
	if sig.Token.MarketCapUSD < 100_000 {
		rug += 20
	}
	switch {
	case sig.Token.HolderCount < 100:
		rug += 20
	case sig.Token.HolderCount < 500:
		rug += 10
	}
	rug = domain.Clamp100(rug)

	volatility := 30
	change := math.Abs(sig.Token.PriceChange24hPct)
	if change > 50 {
		volatility += 15
	}
	if change > 100 {
		volatility += 30
	}
	volatility = domain.Clamp100(volatility)

	liquidity := 20
	if sig.Token.LiquidityUSD < 0.5*sig.Token.Volume24hUSD {
		liquidity += 30
	}

	overall := overallRiskLevel((rug + volatility + liquidity) / 3)

	var warnings []string
	if overall >= domain.RiskHigh {
		warnings = append(warnings, "overall risk is elevated, position sizing is defensive")
	}
	if sig.Token.PriceChange24hPct > 200 {
		warnings = append(warnings, fmt.Sprintf("price already up %.0f%% in 24h, reversal risk", sig.Token.PriceChange24hPct))
	}
	if sum.isNew {
		warnings = append(warnings, "token is less than 24 hours old")
	}

	return domain.RiskAnalysis{
		RugRisk:        rug,
		VolatilityRisk: volatility,
		LiquidityRisk:  liquidity,
		OverallRisk:    overall,
		Warnings:       warnings,
	}
}

func overallRiskLevel(score int) domain.RiskLevel {
	switch {
	case score >= 60:
		return domain.RiskExtreme
	case score >= 40:
		return domain.RiskHigh
	case score >= 25:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// entryStrategy selects sizing from the (risk, score) table, with new
// tokens forced down to a small scalp position.
func (e *RuleEngine) entryStrategy(sig *domain.Signal, sum marketSummary, risk domain.RiskAnalysis) domain.EntryStrategy {
	size := domain.PositionSmall
	maxPos := maxPositionSmall
	switch {
	case risk.OverallRisk == domain.RiskLow && sig.Score >= 80:
		size = domain.PositionLarge
		maxPos = maxPositionLarge
	case risk.OverallRisk == domain.RiskMedium && sig.Score >= 70:
		size = domain.PositionMedium
		maxPos = maxPositionMedium
	}
	if sum.isNew {
		size = domain.PositionSmall
		if maxPos > maxPositionNewToken {
			maxPos = maxPositionNewToken
		}
	}

	stopLoss := math.Abs(sig.Token.PriceChange24hPct) * 0.5
	if stopLoss < 10 {
		stopLoss = 10
	}
	if stopLoss > 30 {
		stopLoss = 30
	}

	horizon := domain.HorizonShort
	switch {
	case sum.isNew:
		horizon = domain.HorizonScalp
	case sig.Score >= 85:
		horizon = domain.HorizonMedium
	}

	return domain.EntryStrategy{
		EntryPriceUSD:  sig.Token.PriceUSD * 1.02, // assumed slippage
		StopLossPct:    stopLoss,
		TakeProfitPct:  stopLoss * 2, // fixed 2:1 reward to risk
		PositionSize:   size,
		MaxPositionUSD: maxPos,
		TimeHorizon:    horizon,
	}
}

// decideAction evaluates the decision table in order; first match wins.
func decideAction(score int, risk domain.RiskLevel) domain.Action {
	switch {
	case risk == domain.RiskExtreme:
		return domain.ActionAvoid
	case score >= 85 && risk == domain.RiskLow:
		return domain.ActionStrongBuy
	case score >= 75 && risk != domain.RiskHigh:
		return domain.ActionBuy
	case score >= 60:
		return domain.ActionWatch
	default:
		return domain.ActionAvoid
	}
}

func confidenceFor(score int, sum marketSummary, risk domain.RiskLevel) int {
	confidence := score
	if sum.multiPlatform {
		confidence += 5
	}
	switch risk {
	case domain.RiskLow:
		confidence += 5
	case domain.RiskHigh:
		confidence -= 15
	case domain.RiskExtreme:
		confidence -= 30
	}
	return domain.Clamp100(confidence)
}

func reasoningFor(sig *domain.Signal, sum marketSummary, action domain.Action) []string {
	var reasons []string
	if sum.multiPlatform {
		reasons = append(reasons, fmt.Sprintf("confirmed on %d platforms", sig.Metrics.PlatformCount))
	}
	if sig.Token.Volume24hUSD > 500_000 {
		reasons = append(reasons, fmt.Sprintf("high 24h volume ($%.0fk)", sig.Token.Volume24hUSD/1000))
	}
	if sig.Token.PriceChange24hPct > 50 {
		reasons = append(reasons, fmt.Sprintf("strong 24h gain (%.0f%%)", sig.Token.PriceChange24hPct))
	}
	if sum.isNew {
		reasons = append(reasons, "newly listed token, early entry window")
	}
	if action == domain.ActionAvoid {
		reasons = append(reasons, "risk outweighs signal quality")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("signal score %d", sig.Score))
	}
	return reasons
}

func observationsFor(sig *domain.Signal, sum marketSummary) []string {
	var obs []string
	if sum.liquidityAdequate {
		obs = append(obs, "liquidity is adequate relative to market cap")
	}
	if sum.holdersAdequate {
		obs = append(obs, fmt.Sprintf("holder base of %d suggests distribution", sig.Token.HolderCount))
	}
	if sum.volLiqRatio > 3 {
		obs = append(obs, fmt.Sprintf("volume is %.1fx liquidity, turnover is intense", sum.volLiqRatio))
	}
	if sig.Token.PriceChange24hPct > 200 {
		obs = append(obs, "parabolic move may retrace sharply")
	}
	return obs
}
