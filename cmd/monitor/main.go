// Package main runs the continuous token monitor: providers → aggregation →
// advisory → notification, with optional Postgres/ClickHouse persistence.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"tokenradar/internal/advisor"
	"tokenradar/internal/advisor/llm"
	"tokenradar/internal/aggregator"
	"tokenradar/internal/config"
	"tokenradar/internal/monitor"
	"tokenradar/internal/notify"
	"tokenradar/internal/notify/console"
	"tokenradar/internal/notify/telegram"
	"tokenradar/internal/observability"
	"tokenradar/internal/providers"
	"tokenradar/internal/providers/birdeye"
	"tokenradar/internal/providers/dexscreener"
	"tokenradar/internal/providers/pumpfun"
	"tokenradar/internal/storage"
	"tokenradar/internal/storage/memory"
	"tokenradar/internal/storage/migrations"
	pgstore "tokenradar/internal/storage/postgres"
	"tokenradar/internal/tracker"

	chstore "tokenradar/internal/storage/clickhouse"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("configuration invalid")
	}

	logger := newLogger(cfg.LogLevel)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer, "tokenradar")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage setup failed")
	}
	defer cleanup()

	provs, closeProviders := createProviders(ctx, cfg, logger)
	defer closeProviders()

	agg := aggregator.New(aggregator.Options{
		Providers:         provs,
		MinScore:          cfg.MinScore,
		SuppressionWindow: cfg.SuppressionWindow,
		Logger:            logger.With().Str("component", "aggregator").Logger(),
		Metrics:           metrics,
	})

	router := createRouter(cfg, logger, metrics)
	svc := tracker.New(tracker.Options{
		Store:  stores.tracked,
		Logger: logger.With().Str("component", "tracker").Logger(),
	})

	notifier, poller := createNotifier(cfg, svc, logger)
	if poller != nil {
		poller.Start(ctx)
		defer poller.Stop()
	}

	orch := monitor.New(monitor.Options{
		Aggregator:          agg,
		Router:              router,
		Notifier:            notifier,
		Tracker:             svc,
		SignalStore:         stores.signals,
		RecommendationStore: stores.recs,
		ArchiveStore:        stores.archive,
		Chains:              cfg.Chains,
		MinConfidence:       cfg.MinConfidence,
		MaxBatch:            cfg.MaxBatch,
		Interval:            cfg.Interval,
		Logger:              logger.With().Str("component", "monitor").Logger(),
		Metrics:             metrics,
	})

	go serveMetrics(cfg.MetricsAddr, logger)

	orch.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	orch.Stop()

	stats := orch.Stats()
	logger.Info().
		Int64("cycles", stats.Cycles).
		Int64("signals_seen", stats.SignalsSeen).
		Int64("notifications", stats.SignalsSent).
		Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// appStores groups the storage backends the monitor needs.
type appStores struct {
	signals storage.SignalStore
	recs    storage.RecommendationStore
	tracked storage.TrackedTokenStore
	archive storage.SignalArchiveStore // nil without clickhouse
}

// createStores wires Postgres/ClickHouse when DSNs are configured and falls
// back to in-memory stores otherwise. Migrations run at startup.
func createStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*appStores, func(), error) {
	stores := &appStores{
		signals: memory.NewSignalStore(),
		recs:    memory.NewRecommendationStore(),
		tracked: memory.NewTrackedTokenStore(),
	}
	cleanup := func() {}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		stores.signals = pgstore.NewSignalStore(pool)
		stores.recs = pgstore.NewRecommendationStore(pool)
		stores.tracked = pgstore.NewTrackedTokenStore(pool)
		prev := cleanup
		cleanup = func() { pool.Close(); prev() }
		logger.Info().Msg("postgres storage ready")
	} else {
		logger.Warn().Msg("POSTGRES_DSN not set, using in-memory storage")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		stores.archive = chstore.NewSignalArchiveStore(conn)
		prev := cleanup
		cleanup = func() { conn.Close(); prev() }
		logger.Info().Msg("clickhouse archive ready")
	}

	return stores, cleanup, nil
}

// createProviders builds the configured signal sources. The pump.fun stream
// is best effort; a failed connect degrades to the HTTP providers.
func createProviders(ctx context.Context, cfg *config.Config, logger zerolog.Logger) ([]providers.Provider, func()) {
	provs := []providers.Provider{
		dexscreener.NewClient(),
		birdeye.NewClient(cfg.BirdeyeAPIKey),
	}
	closeFn := func() {}

	stream, err := pumpfun.NewStream(ctx,
		pumpfun.WithLogger(logger.With().Str("component", "pumpfun").Logger()))
	if err != nil {
		logger.Warn().Err(err).Msg("pump.fun stream unavailable, continuing without it")
	} else {
		provs = append(provs, stream)
		closeFn = func() { _ = stream.Close() }
	}

	if cfg.BirdeyeAPIKey == "" {
		logger.Warn().Msg("BIRDEYE_API_KEY not set, birdeye provider disabled")
	}
	return provs, closeFn
}

func createRouter(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) *advisor.Router {
	var backends []advisor.Backend
	if cfg.LLMEnabled() {
		backends = append(backends, llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel))
		logger.Info().Str("model", cfg.LLMModel).Msg("llm advisory backend enabled")
	}

	return advisor.NewRouter(advisor.RouterOptions{
		Backends: backends,
		Fallback: advisor.NewRuleEngine(advisor.RuleEngineOptions{
			Logger: logger.With().Str("component", "rules").Logger(),
		}),
		Mode:    cfg.AdvisoryMode,
		Logger:  logger.With().Str("component", "advisor").Logger(),
		Metrics: metrics,
	})
}

func createNotifier(cfg *config.Config, svc *tracker.Service, logger zerolog.Logger) (notify.Notifier, *telegram.Poller) {
	if !cfg.TelegramEnabled() {
		logger.Info().Msg("telegram not configured, recommendations go to the log")
		return console.New(logger.With().Str("component", "notify").Logger()), nil
	}

	n := telegram.New(telegram.Options{
		BotToken: cfg.TelegramBotToken,
		ChatID:   cfg.TelegramChatID,
		Logger:   logger.With().Str("component", "telegram").Logger(),
	})
	p := telegram.NewPoller(telegram.PollerOptions{
		Notifier: n,
		Tracker:  svc,
		Logger:   logger.With().Str("component", "telegram-poller").Logger(),
	})
	return n, p
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics listener failed")
	}
}
