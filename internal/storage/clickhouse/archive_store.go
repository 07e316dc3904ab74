package clickhouse

import (
	"context"
	"fmt"
	"time"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

// SignalArchiveStore implements storage.SignalArchiveStore using ClickHouse.
// The archive is append-only; MergeTree does not enforce uniqueness and the
// monitor may legitimately archive the same token across many cycles.
type SignalArchiveStore struct {
	conn *Conn
}

// NewSignalArchiveStore creates a new SignalArchiveStore.
func NewSignalArchiveStore(conn *Conn) *SignalArchiveStore {
	return &SignalArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SignalArchiveStore = (*SignalArchiveStore)(nil)

// InsertCycle archives all rows from one scan cycle in a single batch.
func (s *SignalArchiveStore) InsertCycle(ctx context.Context, rows []*domain.ArchiveRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO signal_archive (
			cycle_at, signal_id, chain, token_address, signal_type, symbol,
			price_usd, market_cap_usd, liquidity_usd, volume_24h_usd,
			price_change_24h_pct, holder_count,
			score, urgency, risk_level, platform_count, platforms,
			action, confidence, overall_risk, model, notified
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, row := range rows {
		if row == nil || row.Signal == nil {
			return storage.ErrInvalidInput
		}
		sig := row.Signal

		// Recommendation columns default to empty when no advice was produced.
		action, overallRisk, model := "", "", ""
		confidence := int32(0)
		if rec := row.Recommendation; rec != nil {
			action = rec.Action.String()
			confidence = int32(rec.Confidence)
			overallRisk = rec.Risk.OverallRisk.String()
			model = rec.Model
		}

		notified := uint8(0)
		if row.Notified {
			notified = 1
		}

		err = batch.Append(
			time.UnixMilli(row.CycleAt), sig.ID, sig.Chain, sig.TokenAddress,
			string(sig.Type), sig.Token.Symbol,
			sig.Token.PriceUSD, sig.Token.MarketCapUSD, sig.Token.LiquidityUSD,
			sig.Token.Volume24hUSD, sig.Token.PriceChange24hPct, sig.Token.HolderCount,
			int32(sig.Score), sig.Urgency.String(), sig.RiskLevel.String(),
			int32(sig.Metrics.PlatformCount), sig.Metrics.Platforms,
			action, confidence, overallRisk, model, notified,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CountByToken returns how many archived cycles mention a token.
func (s *SignalArchiveStore) CountByToken(ctx context.Context, chain, tokenAddress string) (int64, error) {
	query := `
		SELECT count(*) FROM signal_archive
		WHERE chain = ? AND token_address = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, chain, tokenAddress).Scan(&count); err != nil {
		return 0, fmt.Errorf("count archive rows: %w", err)
	}
	return int64(count), nil
}
