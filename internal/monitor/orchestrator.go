// Package monitor runs the periodic scan cycle: collect signals, route them
// through the advisory layer, notify the operator and persist the results.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"tokenradar/internal/advisor"
	"tokenradar/internal/aggregator"
	"tokenradar/internal/domain"
	"tokenradar/internal/notify"
	"tokenradar/internal/observability"
	"tokenradar/internal/storage"
	"tokenradar/internal/tracker"
)

// Default configuration values.
const (
	DefaultInterval      = 5 * time.Minute
	DefaultMinConfidence = 65
	DefaultMaxBatch      = 10
	DefaultSendDelay     = 1 * time.Second
)

// Options configures an Orchestrator.
type Options struct {
	Aggregator *aggregator.Aggregator
	Router     *advisor.Router
	Notifier   notify.Notifier
	Tracker    *tracker.Service

	SignalStore         storage.SignalStore
	RecommendationStore storage.RecommendationStore
	ArchiveStore        storage.SignalArchiveStore // optional

	Chains        []string
	MinConfidence int
	MaxBatch      int
	Interval      time.Duration
	SendDelay     time.Duration

	Clock   func() time.Time
	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Stats is a point-in-time snapshot of orchestrator counters.
type Stats struct {
	Cycles          int64
	SignalsSeen     int64
	SignalsAnalyzed int64
	SignalsSent     int64
	LastCycleAt     int64 // Unix ms, 0 before the first cycle
	LastError       string
}

// Orchestrator drives the scan loop. Start and Stop are idempotent; a
// single-flight guard keeps overlapping cycles from running concurrently.
type Orchestrator struct {
	agg     *aggregator.Aggregator
	router  *advisor.Router
	notif   notify.Notifier
	tracker *tracker.Service

	signals  storage.SignalStore
	recs     storage.RecommendationStore
	archive  storage.SignalArchiveStore
	chains   []string
	minConf  int
	maxBatch int
	interval time.Duration
	delay    time.Duration
	now      func() time.Time
	log      zerolog.Logger
	metrics  *observability.Metrics

	cycleActive atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stats   Stats
}

// New creates an Orchestrator, applying defaults.
func New(opts Options) *Orchestrator {
	if len(opts.Chains) == 0 {
		opts.Chains = []string{"solana"}
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultMinConfidence
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.SendDelay <= 0 {
		opts.SendDelay = DefaultSendDelay
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics(prometheus.NewRegistry(), "")
	}

	return &Orchestrator{
		agg:      opts.Aggregator,
		router:   opts.Router,
		notif:    opts.Notifier,
		tracker:  opts.Tracker,
		signals:  opts.SignalStore,
		recs:     opts.RecommendationStore,
		archive:  opts.ArchiveStore,
		chains:   opts.Chains,
		minConf:  opts.MinConfidence,
		maxBatch: opts.MaxBatch,
		interval: opts.Interval,
		delay:    opts.SendDelay,
		now:      opts.Clock,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Start launches the scan loop: one immediate cycle, then one per interval.
// Idempotent; a second call while running is a no-op.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return
	}
	o.started = true

	ctx, o.cancel = context.WithCancel(ctx)
	o.done = make(chan struct{})
	go o.loop(ctx)

	o.log.Info().
		Strs("chains", o.chains).
		Dur("interval", o.interval).
		Msg("monitor started")
}

// Stop terminates the loop and waits for the in-flight cycle. Idempotent.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	cancel, done := o.cancel, o.done
	o.mu.Unlock()

	cancel()
	<-done
	o.log.Info().Msg("monitor stopped")
}

func (o *Orchestrator) loop(ctx context.Context) {
	defer close(o.done)

	o.runCycle(ctx)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runCycle(ctx)
		}
	}
}

// runCycle executes one cycle under the single-flight guard. Errors and
// panics are recorded; the loop always survives.
func (o *Orchestrator) runCycle(ctx context.Context) {
	if !o.cycleActive.CompareAndSwap(false, true) {
		o.log.Warn().Msg("previous cycle still running, skipping")
		o.metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer o.cycleActive.Store(false)

	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			o.setLastError(fmt.Sprintf("panic: %v", r))
			o.metrics.CyclesTotal.WithLabelValues("panic").Inc()
			o.log.Error().Interface("panic", r).Msg("scan cycle panicked")
		}
		o.metrics.CycleDuration.Observe(o.now().Sub(start).Seconds())
	}()

	if err := o.cycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		o.setLastError(err.Error())
		o.metrics.CyclesTotal.WithLabelValues("error").Inc()
		o.log.Error().Err(err).Msg("scan cycle failed")
		return
	}

	o.mu.Lock()
	o.stats.Cycles++
	o.stats.LastCycleAt = o.now().UnixMilli()
	o.stats.LastError = ""
	o.mu.Unlock()

	o.metrics.CyclesTotal.WithLabelValues("ok").Inc()
	o.metrics.LastCycleAt.Set(float64(o.now().Unix()))
}

// cycle is one full pass: collect, dedupe, cap, analyze, notify, persist.
func (o *Orchestrator) cycle(ctx context.Context) error {
	collected := o.collect(ctx)

	o.mu.Lock()
	o.stats.SignalsSeen += int64(len(collected))
	o.mu.Unlock()

	if len(collected) == 0 {
		o.log.Debug().Msg("no signals this cycle")
		return nil
	}

	batch := collected
	if len(batch) > o.maxBatch {
		batch = batch[:o.maxBatch]
	}

	recs := o.router.AnalyzeBatch(ctx, batch)

	o.mu.Lock()
	o.stats.SignalsAnalyzed += int64(len(recs))
	o.mu.Unlock()

	cycleAt := o.now().UnixMilli()
	rows := make([]*domain.ArchiveRow, 0, len(batch))

	for i, sig := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := recs[i]
		notified := o.maybeNotify(ctx, sig, rec)
		rows = append(rows, &domain.ArchiveRow{
			CycleAt:        cycleAt,
			Signal:         sig,
			Recommendation: rec,
			Notified:       notified,
		})
	}

	o.archiveRows(ctx, rows)
	return nil
}

// collect fetches new listings and trending per chain, dedupes by token key
// keeping the first occurrence, and re-sorts the combined list by score so the
// batch cap keeps the global top-N rather than the per-operation order.
func (o *Orchestrator) collect(ctx context.Context) []*domain.Signal {
	var all []*domain.Signal
	for _, chain := range o.chains {
		listings, err := o.agg.NewListings(ctx, chain)
		if err != nil {
			o.log.Warn().Err(err).Str("chain", chain).Msg("new listings fetch failed")
		}
		trending, err := o.agg.Trending(ctx, chain)
		if err != nil {
			o.log.Warn().Err(err).Str("chain", chain).Msg("trending fetch failed")
		}
		all = append(all, listings...)
		all = append(all, trending...)
	}

	seen := make(map[string]bool, len(all))
	deduped := all[:0]
	for _, sig := range all {
		if seen[sig.Key()] {
			continue
		}
		seen[sig.Key()] = true
		deduped = append(deduped, sig)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].Score != deduped[j].Score {
			return deduped[i].Score > deduped[j].Score
		}
		return deduped[i].Key() < deduped[j].Key()
	})
	return deduped
}

// maybeNotify applies the notification predicate and sends when it passes.
// Reports whether a notification went out.
func (o *Orchestrator) maybeNotify(ctx context.Context, sig *domain.Signal, rec *domain.Recommendation) bool {
	if !o.shouldNotify(ctx, sig, rec) {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(o.delay):
	}

	if err := o.notif.SendRecommendation(ctx, sig, rec); err != nil {
		o.metrics.NotificationsSent.WithLabelValues("error").Inc()
		o.log.Error().Err(err).Str("token", sig.Key()).Msg("notification failed")
		return false
	}
	o.metrics.NotificationsSent.WithLabelValues("ok").Inc()

	o.mu.Lock()
	o.stats.SignalsSent++
	o.mu.Unlock()

	o.persist(ctx, sig, rec)
	return true
}

// shouldNotify is the acceptance predicate: actionable conviction, enough
// confidence, no extreme risk unless conviction is maximal, and the token
// was not dismissed by the operator.
func (o *Orchestrator) shouldNotify(ctx context.Context, sig *domain.Signal, rec *domain.Recommendation) bool {
	if rec.Action != domain.ActionBuy && rec.Action != domain.ActionStrongBuy {
		return false
	}
	if rec.Confidence < o.minConf {
		return false
	}
	if rec.Risk.OverallRisk == domain.RiskExtreme && rec.Action != domain.ActionStrongBuy {
		return false
	}
	if o.tracker != nil && o.tracker.IsDismissed(ctx, sig.Chain, sig.TokenAddress) {
		o.log.Debug().Str("token", sig.Key()).Msg("token dismissed, notification suppressed")
		return false
	}
	return true
}

// persist stores the emitted signal and its recommendation. Best effort;
// failures are logged and counted, never fatal to the cycle.
func (o *Orchestrator) persist(ctx context.Context, sig *domain.Signal, rec *domain.Recommendation) {
	if o.signals != nil {
		if err := o.signals.Insert(ctx, sig); err != nil {
			o.metrics.StoreErrors.WithLabelValues("signals").Inc()
			o.log.Warn().Err(err).Str("signal_id", sig.ID).Msg("signal persist failed")
		}
	}
	if o.recs != nil {
		if err := o.recs.Insert(ctx, rec); err != nil {
			o.metrics.StoreErrors.WithLabelValues("recommendations").Inc()
			o.log.Warn().Err(err).Str("signal_id", rec.SignalID).Msg("recommendation persist failed")
		}
	}
}

// archiveRows writes every analyzed pair to the archive when configured.
func (o *Orchestrator) archiveRows(ctx context.Context, rows []*domain.ArchiveRow) {
	if o.archive == nil || len(rows) == 0 {
		return
	}
	if err := o.archive.InsertCycle(ctx, rows); err != nil {
		o.metrics.StoreErrors.WithLabelValues("archive").Inc()
		o.log.Warn().Err(err).Int("rows", len(rows)).Msg("archive write failed")
		return
	}
	o.metrics.ArchiveRowsWritten.Add(float64(len(rows)))
}

func (o *Orchestrator) setLastError(msg string) {
	o.mu.Lock()
	o.stats.LastError = msg
	o.mu.Unlock()
}

// Stats returns a snapshot of the orchestrator counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}
