package advisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"tokenradar/internal/domain"
	"tokenradar/internal/observability"
)

// FallbackModel tags synthetic recommendations emitted when every backend
// failed for a signal.
const FallbackModel = "fallback/none"

// Advisory modes.
const (
	ModeAuto  = "auto"  // first configured backend, rule engine as fallback
	ModeRules = "rules" // rule engine only
)

// RouterOptions configures a Router.
type RouterOptions struct {
	// Backends in priority order. May be empty.
	Backends []Backend

	// Fallback handles signals the primary backend could not. Defaults to
	// a rule engine, which never fails.
	Fallback Backend

	// Mode selects the primary backend: ModeAuto, ModeRules, or the name
	// of a configured backend.
	Mode string

	BatchDelay time.Duration
	Clock      func() time.Time
	Logger     zerolog.Logger
	Metrics    *observability.Metrics
}

// Router owns the advisory backends and guarantees one recommendation per
// signal in batch mode, falling back to the rule engine and finally to a
// synthetic neutral answer.
type Router struct {
	backends   []Backend
	fallback   Backend
	mode       string
	batchDelay time.Duration
	now        func() time.Time
	log        zerolog.Logger
	metrics    *observability.Metrics

	mu    sync.Mutex
	stats map[string]*BackendStats
}

// BackendStats counts per-backend outcomes.
type BackendStats struct {
	Success int64
	Failure int64
}

// NewRouter creates a Router, applying defaults.
func NewRouter(opts RouterOptions) *Router {
	if opts.Fallback == nil {
		opts.Fallback = NewRuleEngine(RuleEngineOptions{Clock: opts.Clock, Logger: opts.Logger})
	}
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = 500 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics(prometheus.NewRegistry(), "")
	}

	return &Router{
		backends:   opts.Backends,
		fallback:   opts.Fallback,
		mode:       opts.Mode,
		batchDelay: opts.BatchDelay,
		now:        opts.Clock,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		stats:      make(map[string]*BackendStats),
	}
}

// primary selects the backend for the configured mode.
func (r *Router) primary() Backend {
	switch r.mode {
	case ModeRules:
		return r.fallback
	case ModeAuto:
		if len(r.backends) > 0 {
			return r.backends[0]
		}
		return r.fallback
	default:
		for _, b := range r.backends {
			if b.Name() == r.mode {
				return b
			}
		}
		return r.fallback
	}
}

// Analyze routes one signal to the primary backend, retrying once against
// the rule engine on failure. Errors propagate only when both fail.
func (r *Router) Analyze(ctx context.Context, sig *domain.Signal) (*domain.Recommendation, error) {
	primary := r.primary()

	rec, err := r.analyzeWith(ctx, primary, sig)
	if err == nil {
		return rec, nil
	}

	if primary == r.fallback {
		return nil, err
	}

	r.log.Warn().Err(err).
		Str("backend", primary.Name()).
		Str("signal_id", sig.ID).
		Msg("advisory backend failed, retrying with rule engine")

	rec, fbErr := r.analyzeWith(ctx, r.fallback, sig)
	if fbErr != nil {
		return nil, fmt.Errorf("primary: %w (fallback: %v)", err, fbErr)
	}
	return rec, nil
}

// AnalyzeBatch analyzes signals sequentially with an inter-item delay and
// never fails: a signal whose analysis failed even after fallback gets a
// synthetic neutral recommendation. Output is 1:1 with input, in order.
func (r *Router) AnalyzeBatch(ctx context.Context, signals []*domain.Signal) []*domain.Recommendation {
	recs := make([]*domain.Recommendation, 0, len(signals))

	for i, sig := range signals {
		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.batchDelay):
			}
		}

		rec, err := r.Analyze(ctx, sig)
		if err != nil {
			r.log.Error().Err(err).
				Str("signal_id", sig.ID).
				Msg("all advisory backends failed, emitting neutral recommendation")
			r.metrics.AdvisoryFallbacks.Inc()
			rec = r.neutral(sig)
		}
		recs = append(recs, rec)
	}

	return recs
}

// analyzeWith runs one backend and records its outcome.
func (r *Router) analyzeWith(ctx context.Context, b Backend, sig *domain.Signal) (*domain.Recommendation, error) {
	start := r.now()
	rec, err := b.Analyze(ctx, sig)
	r.metrics.AdvisoryLatency.WithLabelValues(b.Name()).Observe(r.now().Sub(start).Seconds())

	r.mu.Lock()
	st, ok := r.stats[b.Name()]
	if !ok {
		st = &BackendStats{}
		r.stats[b.Name()] = st
	}
	if err != nil {
		st.Failure++
	} else {
		st.Success++
	}
	r.mu.Unlock()

	if err != nil {
		r.metrics.AdvisoryRequests.WithLabelValues(b.Name(), "error").Inc()
		return nil, err
	}
	r.metrics.AdvisoryRequests.WithLabelValues(b.Name(), "ok").Inc()
	return rec, nil
}

// neutral builds the synthetic recommendation for an unanalyzable signal.
func (r *Router) neutral(sig *domain.Signal) *domain.Recommendation {
	return &domain.Recommendation{
		SignalID:   sig.ID,
		Action:     domain.ActionWatch,
		Confidence: 50,
		Reasoning:  []string{"advisory analysis unavailable, defaulting to watch"},
		Entry: domain.EntryStrategy{
			EntryPriceUSD:  sig.Token.PriceUSD * 1.02,
			StopLossPct:    10,
			TakeProfitPct:  20,
			PositionSize:   domain.PositionSmall,
			MaxPositionUSD: maxPositionSmall,
			TimeHorizon:    domain.HorizonShort,
		},
		Risk: domain.RiskAnalysis{
			OverallRisk: domain.RiskHigh,
			Warnings:    []string{"no advisory backend could analyze this signal"},
		},
		Model:     FallbackModel,
		CreatedAt: r.now().UnixMilli(),
	}
}

// Stats returns a snapshot of per-backend outcome counters.
func (r *Router) Stats() map[string]BackendStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]BackendStats, len(r.stats))
	for name, st := range r.stats {
		out[name] = *st
	}
	return out
}
