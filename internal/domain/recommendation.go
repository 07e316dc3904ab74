package domain

// Action is the advisory conviction level, ordered by conviction.
type Action int

const (
	ActionAvoid Action = iota
	ActionWatch
	ActionBuy
	ActionStrongBuy
)

// String returns the wire representation.
func (a Action) String() string {
	switch a {
	case ActionStrongBuy:
		return "strong_buy"
	case ActionBuy:
		return "buy"
	case ActionWatch:
		return "watch"
	default:
		return "avoid"
	}
}

// ParseAction maps a wire string to an Action. Unknown values coerce to
// watch rather than failing: a malformed advisory response must never
// produce an accidental buy.
func ParseAction(s string) Action {
	switch s {
	case "strong_buy":
		return ActionStrongBuy
	case "buy":
		return ActionBuy
	case "avoid":
		return ActionAvoid
	default:
		return ActionWatch
	}
}

// PositionSize buckets the suggested position.
type PositionSize string

const (
	PositionSmall  PositionSize = "small"
	PositionMedium PositionSize = "medium"
	PositionLarge  PositionSize = "large"
)

// ParsePositionSize coerces unknown values to small.
func ParsePositionSize(s string) PositionSize {
	switch PositionSize(s) {
	case PositionMedium, PositionLarge:
		return PositionSize(s)
	default:
		return PositionSmall
	}
}

// TimeHorizon buckets the expected holding period.
type TimeHorizon string

const (
	HorizonScalp  TimeHorizon = "scalp"
	HorizonShort  TimeHorizon = "short"
	HorizonMedium TimeHorizon = "medium"
	HorizonLong   TimeHorizon = "long"
)

// ParseTimeHorizon coerces unknown values to short.
func ParseTimeHorizon(s string) TimeHorizon {
	switch TimeHorizon(s) {
	case HorizonScalp, HorizonMedium, HorizonLong:
		return TimeHorizon(s)
	default:
		return HorizonShort
	}
}

// EntryStrategy is the suggested entry/exit plan attached to a
// recommendation. Prices are positive floats in USD; percents are absolute.
type EntryStrategy struct {
	EntryPriceUSD  float64
	StopLossPct    float64
	TakeProfitPct  float64
	PositionSize   PositionSize
	MaxPositionUSD float64
	TimeHorizon    TimeHorizon
}

// RiskAnalysis is the advisory-layer risk breakdown. The three sub-scores
// are independent 0-100 values; OverallRisk maps their average to a level.
type RiskAnalysis struct {
	RugRisk        int
	VolatilityRisk int
	LiquidityRisk  int
	OverallRisk    RiskLevel
	Warnings       []string
}

// Recommendation is the advisory output tied 1:1 to a signal. It is created
// once per signal per scan cycle and never updated.
type Recommendation struct {
	SignalID        string
	Action          Action
	Confidence      int // 0-100
	Reasoning       []string // ordered, most significant first
	Entry           EntryStrategy
	Risk            RiskAnalysis
	KeyObservations []string
	Model           string // advisory implementation that produced the result
	CreatedAt       int64  // Unix ms
}

// Clamp100 bounds v to [0, 100].
func Clamp100(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
