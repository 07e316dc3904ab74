// Package scoring implements the shared normalizer contract every provider
// adapter must use to turn a raw observation into a Signal. Keeping the
// formula in one place keeps cross-provider scores comparable for merging.
package scoring

import (
	"encoding/json"
	"errors"

	"tokenradar/internal/domain"
	"tokenradar/internal/idhash"
)

// ErrIncomplete is returned by Build when an observation is missing
// required fields and must be dropped.
var ErrIncomplete = errors.New("observation missing required fields")

// Observation is one raw item retrieved by a provider adapter, already
// mapped onto the common snapshot shape but not yet scored.
type Observation struct {
	Chain            string
	TokenAddress     string
	Type             domain.SignalType
	Platform         string
	Confidence       int // provider-reported, 0-100
	Token            domain.TokenSnapshot
	ContractVerified bool
	Raw              json.RawMessage
}

// Score computes the 0-100 signal score: base 50, additive bonuses for
// volume, liquidity, age, momentum and holder distribution, capped.
func Score(obs Observation, nowMs int64) int {
	score := 50

	if obs.Token.Volume24hUSD > 100_000 {
		score += 15
	}
	if obs.Token.Volume24hUSD > 500_000 {
		score += 10
	}
	if obs.Token.LiquidityUSD > 50_000 {
		score += 10
	}
	if isNew(obs, nowMs) {
		score += 10
	}
	if obs.Token.PriceChange24hPct > 50 {
		score += 15
	}
	if obs.Token.PriceChange24hPct > 100 {
		score += 10
	}
	if obs.Token.HolderCount > 1000 {
		score += 5
	}

	return domain.Clamp100(score)
}

// UrgencyFor maps score and token age to an urgency level.
func UrgencyFor(score int, obs Observation, nowMs int64) domain.Urgency {
	switch {
	case score >= 90 || (isNew(obs, nowMs) && obs.Token.Volume24hUSD > 100_000):
		return domain.UrgencyCritical
	case score >= 75:
		return domain.UrgencyHigh
	case score >= 60:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// RiskFor accumulates an independent 0-100 risk score from age, liquidity,
// market cap, holder and contract flags, then maps it to a level. Each
// triggered band contributes a human-readable factor.
func RiskFor(obs Observation, nowMs int64) (domain.RiskLevel, []string) {
	score := 0
	var factors []string

	age := ageHours(obs, nowMs)
	switch {
	case age >= 0 && age < 1:
		score += 30
		factors = append(factors, "token younger than 1 hour")
	case age >= 0 && age < 6:
		score += 20
		factors = append(factors, "token younger than 6 hours")
	case age >= 0 && age < 24:
		score += 10
		factors = append(factors, "token younger than 24 hours")
	}

	switch {
	case obs.Token.LiquidityUSD < 10_000:
		score += 25
		factors = append(factors, "liquidity below $10k")
	case obs.Token.LiquidityUSD < 50_000:
		score += 15
		factors = append(factors, "liquidity below $50k")
	}

	if obs.Token.MarketCapUSD < 100_000 {
		score += 20
		factors = append(factors, "market cap below $100k")
	}

	if obs.Token.HolderCount < 100 {
		score += 15
		factors = append(factors, "fewer than 100 holders")
	}

	if !obs.ContractVerified {
		score += 10
		factors = append(factors, "contract not verified")
	}

	var level domain.RiskLevel
	switch {
	case score >= 70:
		level = domain.RiskExtreme
	case score >= 45:
		level = domain.RiskHigh
	case score >= 25:
		level = domain.RiskMedium
	default:
		level = domain.RiskLow
	}

	return level, factors
}

// Build validates an observation and emits a scored, risk-annotated Signal.
// Returns ErrIncomplete when required fields are missing.
func Build(obs Observation, nowMs int64) (*domain.Signal, error) {
	if obs.TokenAddress == "" || obs.Token.Symbol == "" || obs.Token.PriceUSD <= 0 {
		return nil, ErrIncomplete
	}
	if obs.Chain == "" || obs.Platform == "" {
		return nil, ErrIncomplete
	}

	score := Score(obs, nowMs)
	level, factors := RiskFor(obs, nowMs)

	s := &domain.Signal{
		ID:           idhash.ComputeSignalID(obs.Chain, obs.TokenAddress, string(obs.Type), obs.Platform, nowMs),
		Chain:        obs.Chain,
		TokenAddress: obs.TokenAddress,
		Type:         obs.Type,
		Token:        obs.Token,
		Score:        score,
		Urgency:      UrgencyFor(score, obs, nowMs),
		RiskLevel:    level,
		RiskFactors:  factors,
		Sources: []domain.SignalSource{{
			Platform:   obs.Platform,
			Confidence: domain.Clamp100(obs.Confidence),
			ObservedAt: nowMs,
			Raw:        obs.Raw,
		}},
		Metrics:    metricsFor(obs, score),
		ObservedAt: nowMs,
	}
	return s, nil
}

// metricsFor seeds the per-dimension sub-scores from the signal type.
func metricsFor(obs Observation, score int) domain.SignalMetrics {
	m := domain.SignalMetrics{
		PlatformCount: 1,
		Platforms:     []string{obs.Platform},
	}

	switch obs.Type {
	case domain.TypeVolumeSpike:
		m.VolumeScore = score
	case domain.TypePriceSpike:
		m.PriceScore = score
	case domain.TypeWhaleBuy, domain.TypeSmartMoney:
		m.WhaleScore = score
	case domain.TypeTrending:
		m.SocialScore = score
	case domain.TypeNewListing:
		if obs.Token.Volume24hUSD > 100_000 {
			m.VolumeScore = score
		}
		if obs.Token.PriceChange24hPct > 50 {
			m.PriceScore = score
		}
	}
	return m
}

func ageHours(obs Observation, nowMs int64) float64 {
	if obs.Token.CreatedAt <= 0 {
		return -1
	}
	return float64(nowMs-obs.Token.CreatedAt) / 3600000.0
}

func isNew(obs Observation, nowMs int64) bool {
	age := ageHours(obs, nowMs)
	return age >= 0 && age <= 24
}
