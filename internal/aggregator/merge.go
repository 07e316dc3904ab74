package aggregator

import (
	"tokenradar/internal/domain"
	"tokenradar/internal/idhash"
)

// confirmationBonusPerPlatform rewards each additional confirming platform,
// up to confirmationBonusCap.
const (
	confirmationBonusPerPlatform = 10
	confirmationBonusCap         = 20
)

// mergeByKey groups signals by token key and merges each multi-member group
// into one confirmed signal. Input order decides group order and, within a
// group, source order; single-member groups pass through untouched.
func mergeByKey(signals []*domain.Signal) []*domain.Signal {
	groups := make(map[string][]*domain.Signal)
	var order []string

	for _, sig := range signals {
		key := sig.Key()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sig)
	}

	out := make([]*domain.Signal, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		out = append(out, mergeGroup(group))
	}
	return out
}

// mergeGroup folds a same-token group into one signal: average score plus a
// capped confirmation bonus, max urgency and risk, union of risk factors and
// platforms, per-dimension max sub-scores, concatenated sources. The market
// snapshot comes from the first member; a merged signal is a confirmation,
// not a refresh.
func mergeGroup(group []*domain.Signal) *domain.Signal {
	first := group[0]

	scoreSum := 0
	observedAt := first.ObservedAt
	urgency := first.Urgency
	risk := first.RiskLevel

	var factors []string
	seenFactor := make(map[string]struct{})
	var platforms []string
	seenPlatform := make(map[string]struct{})
	var sources []domain.SignalSource
	var memberIDs []string

	metrics := domain.SignalMetrics{}

	for _, sig := range group {
		scoreSum += sig.Score
		urgency = domain.MaxUrgency(urgency, sig.Urgency)
		risk = domain.MaxRiskLevel(risk, sig.RiskLevel)
		if sig.ObservedAt > observedAt {
			observedAt = sig.ObservedAt
		}

		for _, f := range sig.RiskFactors {
			if _, dup := seenFactor[f]; dup {
				continue
			}
			seenFactor[f] = struct{}{}
			factors = append(factors, f)
		}
		for _, p := range sig.Metrics.Platforms {
			if _, dup := seenPlatform[p]; dup {
				continue
			}
			seenPlatform[p] = struct{}{}
			platforms = append(platforms, p)
		}

		metrics.VolumeScore = maxInt(metrics.VolumeScore, sig.Metrics.VolumeScore)
		metrics.PriceScore = maxInt(metrics.PriceScore, sig.Metrics.PriceScore)
		metrics.SocialScore = maxInt(metrics.SocialScore, sig.Metrics.SocialScore)
		metrics.WhaleScore = maxInt(metrics.WhaleScore, sig.Metrics.WhaleScore)

		sources = append(sources, sig.Sources...)
		memberIDs = append(memberIDs, sig.ID)
	}

	metrics.Platforms = platforms
	metrics.PlatformCount = len(platforms)

	bonus := (metrics.PlatformCount - 1) * confirmationBonusPerPlatform
	if bonus > confirmationBonusCap {
		bonus = confirmationBonusCap
	}
	score := domain.Clamp100(scoreSum/len(group) + bonus)

	return &domain.Signal{
		ID:           idhash.ComputeMergedSignalID(first.Chain, first.TokenAddress, memberIDs),
		Chain:        first.Chain,
		TokenAddress: first.TokenAddress,
		Type:         first.Type,
		Token:        first.Token,
		Score:        score,
		Urgency:      urgency,
		RiskLevel:    risk,
		RiskFactors:  factors,
		Sources:      sources,
		Metrics:      metrics,
		ObservedAt:   observedAt,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
