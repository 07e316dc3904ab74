// Package postgres provides PostgreSQL-backed store implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const signalColumns = `
	signal_id, chain, token_address, signal_type,
	symbol, name, price_usd, market_cap_usd, liquidity_usd, volume_24h_usd,
	price_change_24h_pct, holder_count, token_created_at,
	score, urgency, risk_level, risk_factors, sources, metrics, observed_at
`

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.Signal) error {
	if sig == nil || sig.ID == "" {
		return storage.ErrInvalidInput
	}

	factors, err := json.Marshal(sig.RiskFactors)
	if err != nil {
		return fmt.Errorf("marshal risk factors: %w", err)
	}
	sources, err := json.Marshal(sig.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	metrics, err := json.Marshal(sig.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	query := `
		INSERT INTO signals (` + signalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = s.pool.Exec(ctx, query,
		sig.ID, sig.Chain, sig.TokenAddress, string(sig.Type),
		sig.Token.Symbol, sig.Token.Name, sig.Token.PriceUSD, sig.Token.MarketCapUSD,
		sig.Token.LiquidityUSD, sig.Token.Volume24hUSD,
		sig.Token.PriceChange24hPct, sig.Token.HolderCount, sig.Token.CreatedAt,
		sig.Score, sig.Urgency.String(), sig.RiskLevel.String(),
		factors, sources, metrics, sig.ObservedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, signalID string) (*domain.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE signal_id = $1`

	row := s.pool.QueryRow(ctx, query, signalID)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return sig, nil
}

// GetByToken retrieves all signals for a token, ordered by observed_at DESC.
func (s *SignalStore) GetByToken(ctx context.Context, chain, tokenAddress string) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE chain = $1 AND token_address = $2
		ORDER BY observed_at DESC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, chain, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get signals by token: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetRecent retrieves the most recent signals, ordered by observed_at DESC.
func (s *SignalStore) GetRecent(ctx context.Context, limit int) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		ORDER BY observed_at DESC, signal_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// scanSignal scans a single row into a Signal.
func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var sig domain.Signal
	var typeStr, urgencyStr, riskStr string
	var factors, sources, metrics []byte

	err := row.Scan(
		&sig.ID, &sig.Chain, &sig.TokenAddress, &typeStr,
		&sig.Token.Symbol, &sig.Token.Name, &sig.Token.PriceUSD, &sig.Token.MarketCapUSD,
		&sig.Token.LiquidityUSD, &sig.Token.Volume24hUSD,
		&sig.Token.PriceChange24hPct, &sig.Token.HolderCount, &sig.Token.CreatedAt,
		&sig.Score, &urgencyStr, &riskStr,
		&factors, &sources, &metrics, &sig.ObservedAt,
	)
	if err != nil {
		return nil, err
	}

	sig.Type = domain.SignalType(typeStr)
	sig.Urgency = domain.ParseUrgency(urgencyStr)
	sig.RiskLevel = domain.ParseRiskLevel(riskStr)

	if err := json.Unmarshal(factors, &sig.RiskFactors); err != nil {
		return nil, fmt.Errorf("unmarshal risk factors: %w", err)
	}
	if err := json.Unmarshal(sources, &sig.Sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	if err := json.Unmarshal(metrics, &sig.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}

	return &sig, nil
}

// scanSignals scans multiple rows into a slice of Signal.
func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	var signals []*domain.Signal

	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
