package domain

// SignalType classifies what kind of market event produced a signal.
type SignalType string

const (
	TypeNewListing  SignalType = "new_listing"
	TypeVolumeSpike SignalType = "volume_spike"
	TypePriceSpike  SignalType = "price_spike"
	TypeWhaleBuy    SignalType = "whale_buy"
	TypeTrending    SignalType = "trending"
	TypeSmartMoney  SignalType = "smart_money"
)

// Urgency is an ordered speed-of-action indicator derived from score and
// token age. Comparisons must go through the integer rank, never through
// string comparison.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

// String returns the wire representation.
func (u Urgency) String() string {
	switch u {
	case UrgencyCritical:
		return "critical"
	case UrgencyHigh:
		return "high"
	case UrgencyMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParseUrgency maps a wire string to an Urgency. Unknown values map to low.
func ParseUrgency(s string) Urgency {
	switch s {
	case "critical":
		return UrgencyCritical
	case "high":
		return UrgencyHigh
	case "medium":
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// MaxUrgency returns the more severe of two urgencies.
func MaxUrgency(a, b Urgency) Urgency {
	if a > b {
		return a
	}
	return b
}

// RiskLevel is an ordered risk classification.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskExtreme
)

// String returns the wire representation.
func (r RiskLevel) String() string {
	switch r {
	case RiskExtreme:
		return "extreme"
	case RiskHigh:
		return "high"
	case RiskMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParseRiskLevel maps a wire string to a RiskLevel. Unknown values map to
// medium, the safe default for advisory responses (see advisor decode).
func ParseRiskLevel(s string) RiskLevel {
	switch s {
	case "extreme":
		return RiskExtreme
	case "high":
		return RiskHigh
	case "low":
		return RiskLow
	default:
		return RiskMedium
	}
}

// MaxRiskLevel returns the more severe of two risk levels.
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if a > b {
		return a
	}
	return b
}
