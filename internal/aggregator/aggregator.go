// Package aggregator fans scan requests out to the configured providers,
// merges same-token signals into confirmed ones, and filters the result
// through score, suppression and risk gates.
package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"tokenradar/internal/domain"
	"tokenradar/internal/observability"
	"tokenradar/internal/providers"
)

// Default configuration values.
const (
	DefaultMinScore          = 60
	DefaultSuppressionWindow = 60 * time.Minute

	// suppressionRetention bounds how long stale suppression entries are
	// kept before pruning, independent of the configured window.
	suppressionRetention = 24 * time.Hour
)

// Options configures an Aggregator.
type Options struct {
	Providers         []providers.Provider
	MinScore          int
	SuppressionWindow time.Duration
	Clock             func() time.Time
	Logger            zerolog.Logger
	Metrics           *observability.Metrics
}

// Aggregator merges and filters provider signals. Safe for concurrent use;
// the suppression map is shared across calls.
type Aggregator struct {
	providers         []providers.Provider
	minScore          int
	suppressionWindow time.Duration
	now               func() time.Time
	log               zerolog.Logger
	metrics           *observability.Metrics

	mu          sync.Mutex
	suppression map[string]int64 // signal key -> emitted at, Unix ms
}

// New creates an Aggregator from options, applying defaults.
func New(opts Options) *Aggregator {
	if opts.MinScore <= 0 {
		opts.MinScore = DefaultMinScore
	}
	if opts.SuppressionWindow <= 0 {
		opts.SuppressionWindow = DefaultSuppressionWindow
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics(prometheus.NewRegistry(), "")
	}

	return &Aggregator{
		providers:         opts.Providers,
		minScore:          opts.MinScore,
		suppressionWindow: opts.SuppressionWindow,
		now:               opts.Clock,
		log:               opts.Logger,
		metrics:           opts.Metrics,
		suppression:       make(map[string]int64),
	}
}

// NewListings collects, merges and filters new-listing signals for a chain.
func (a *Aggregator) NewListings(ctx context.Context, chain string) ([]*domain.Signal, error) {
	return a.run(ctx, chain, "new_listings", providers.Provider.NewListings)
}

// Trending collects, merges and filters trending signals for a chain.
func (a *Aggregator) Trending(ctx context.Context, chain string) ([]*domain.Signal, error) {
	return a.run(ctx, chain, "trending", providers.Provider.Trending)
}

type fetchFunc func(providers.Provider, context.Context, string) ([]*domain.Signal, error)

// run is the shared pipeline: fan out, merge, filter, record survivors.
// Provider failures are logged and skipped; an empty cycle is not an error.
func (a *Aggregator) run(ctx context.Context, chain, operation string, fetch fetchFunc) ([]*domain.Signal, error) {
	var collected []*domain.Signal

	for _, p := range a.providers {
		if !p.Enabled() {
			continue
		}
		signals, err := fetch(p, ctx, chain)
		if err != nil {
			a.log.Warn().Err(err).
				Str("platform", p.Name()).
				Str("operation", operation).
				Msg("provider fetch failed, skipping")
			a.metrics.ProviderRequests.WithLabelValues(p.Name(), operation, "error").Inc()
			continue
		}
		a.metrics.ProviderRequests.WithLabelValues(p.Name(), operation, "ok").Inc()
		a.metrics.ProviderSignals.WithLabelValues(p.Name()).Add(float64(len(signals)))
		a.metrics.ProviderBudget.WithLabelValues(p.Name()).Set(float64(p.RemainingRequests()))
		collected = append(collected, signals...)
	}
	a.metrics.SignalsCollected.Add(float64(len(collected)))

	merged := mergeByKey(collected)
	if len(collected) > len(merged) {
		a.metrics.SignalsMerged.Add(float64(len(collected) - len(merged)))
	}
	nowMs := a.now().UnixMilli()

	a.mu.Lock()
	a.prune(nowMs)

	var out []*domain.Signal
	for _, sig := range merged {
		if reason := a.filterReason(sig, nowMs); reason != "" {
			a.metrics.SignalsFiltered.WithLabelValues(reason).Inc()
			continue
		}
		a.suppression[sig.Key()] = nowMs
		out = append(out, sig)
	}
	a.metrics.SuppressionActive.Set(float64(len(a.suppression)))
	a.mu.Unlock()

	a.metrics.SignalsEmitted.Add(float64(len(out)))

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key() < out[j].Key()
	})

	a.log.Debug().
		Str("chain", chain).
		Str("operation", operation).
		Int("collected", len(collected)).
		Int("merged", len(merged)).
		Int("emitted", len(out)).
		Msg("aggregation pass complete")

	return out, nil
}

// filterReason applies the filter chain in order and returns the first
// matching drop reason, or "" when the signal survives. Callers hold mu.
func (a *Aggregator) filterReason(sig *domain.Signal, nowMs int64) string {
	if sig.Score < a.minScore {
		return "min_score"
	}
	if emittedAt, ok := a.suppression[sig.Key()]; ok {
		if nowMs-emittedAt < a.suppressionWindow.Milliseconds() {
			return "suppressed"
		}
	}
	if sig.RiskLevel == domain.RiskExtreme && sig.Score < 80 {
		return "extreme_risk"
	}
	if sig.Token.LiquidityUSD < 5_000 && sig.Token.Volume24hUSD < 1_000 {
		return "dead_token"
	}
	return ""
}

// prune drops suppression entries older than the retention horizon.
// Callers hold mu.
func (a *Aggregator) prune(nowMs int64) {
	cutoff := nowMs - suppressionRetention.Milliseconds()
	for key, emittedAt := range a.suppression {
		if emittedAt < cutoff {
			delete(a.suppression, key)
		}
	}
}

// PlatformStatus describes one provider for status reporting.
type PlatformStatus struct {
	Name              string
	Enabled           bool
	RemainingRequests int
}

// PlatformStatus reports the state of every configured provider.
func (a *Aggregator) PlatformStatus() []PlatformStatus {
	statuses := make([]PlatformStatus, 0, len(a.providers))
	for _, p := range a.providers {
		statuses = append(statuses, PlatformStatus{
			Name:              p.Name(),
			Enabled:           p.Enabled(),
			RemainingRequests: p.RemainingRequests(),
		})
	}
	return statuses
}
