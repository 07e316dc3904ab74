// Package main runs a single scan pass and prints the results as a table.
// Useful for threshold tuning without starting the monitor loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"tokenradar/internal/advisor"
	"tokenradar/internal/advisor/llm"
	"tokenradar/internal/aggregator"
	"tokenradar/internal/config"
	"tokenradar/internal/domain"
	"tokenradar/internal/providers"
	"tokenradar/internal/providers/birdeye"
	"tokenradar/internal/providers/dexscreener"
)

func main() {
	_ = godotenv.Load()

	chain := flag.String("chain", "solana", "Chain to scan")
	minScore := flag.Int("min-score", 60, "Minimum signal score")
	verbose := flag.Bool("verbose", false, "Print reasoning and warnings per signal")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall scan timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		os.Exit(1)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	provs := []providers.Provider{
		dexscreener.NewClient(),
		birdeye.NewClient(cfg.BirdeyeAPIKey),
	}

	agg := aggregator.New(aggregator.Options{
		Providers: provs,
		MinScore:  *minScore,
		Logger:    logger,
	})

	var backends []advisor.Backend
	if cfg.LLMEnabled() {
		backends = append(backends, llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel))
	}
	router := advisor.NewRouter(advisor.RouterOptions{
		Backends: backends,
		Mode:     cfg.AdvisoryMode,
		Logger:   logger,
	})

	listings, err := agg.NewListings(ctx, *chain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "new listings scan failed: %v\n", err)
		os.Exit(1)
	}
	trending, err := agg.Trending(ctx, *chain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trending scan failed: %v\n", err)
		os.Exit(1)
	}

	signals := dedupe(append(listings, trending...))
	if len(signals) == 0 {
		fmt.Println("No signals passed filtering.")
		return
	}

	recs := router.AnalyzeBatch(ctx, signals)
	printTable(signals, recs, *verbose)
}

// dedupe keeps the first signal per token key, preserving order.
func dedupe(signals []*domain.Signal) []*domain.Signal {
	seen := make(map[string]bool, len(signals))
	out := signals[:0]
	for _, sig := range signals {
		if seen[sig.Key()] {
			continue
		}
		seen[sig.Key()] = true
		out = append(out, sig)
	}
	return out
}

func printTable(signals []*domain.Signal, recs []*domain.Recommendation, verbose bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tADDRESS\tSCORE\tURGENCY\tACTION\tCONF\tRISK\tENTRY\tPOSITION\tPLATFORMS")

	for i, sig := range signals {
		rec := recs[i]
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%s\t$%.8f\t%s ($%.0f)\t%s\n",
			sig.Token.Symbol,
			shorten(sig.TokenAddress),
			sig.Score,
			sig.Urgency,
			strings.ToUpper(rec.Action.String()),
			rec.Confidence,
			rec.Risk.OverallRisk,
			rec.Entry.EntryPriceUSD,
			rec.Entry.PositionSize,
			rec.Entry.MaxPositionUSD,
			strings.Join(sig.Metrics.Platforms, ","),
		)
	}
	w.Flush()

	if !verbose {
		return
	}
	for i, sig := range signals {
		rec := recs[i]
		fmt.Printf("\n%s (%s)\n", sig.Token.Symbol, sig.Key())
		for _, r := range rec.Reasoning {
			fmt.Printf("  + %s\n", r)
		}
		for _, wmsg := range rec.Risk.Warnings {
			fmt.Printf("  ! %s\n", wmsg)
		}
		for _, o := range rec.KeyObservations {
			fmt.Printf("  * %s\n", o)
		}
	}
}

// shorten elides the middle of long addresses for table display.
func shorten(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + ".." + addr[len(addr)-4:]
}
