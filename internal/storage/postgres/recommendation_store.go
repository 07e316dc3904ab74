package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

// RecommendationStore implements storage.RecommendationStore using PostgreSQL.
type RecommendationStore struct {
	pool *Pool
}

// NewRecommendationStore creates a new RecommendationStore.
func NewRecommendationStore(pool *Pool) *RecommendationStore {
	return &RecommendationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecommendationStore = (*RecommendationStore)(nil)

const recommendationColumns = `
	signal_id, action, confidence, reasoning,
	entry_price_usd, stop_loss_pct, take_profit_pct, position_size, max_position_usd, time_horizon,
	rug_risk, volatility_risk, liquidity_risk, overall_risk, warnings,
	key_observations, model, created_at_ms
`

// Insert adds a new recommendation. Returns ErrDuplicateKey if signal_id exists.
func (s *RecommendationStore) Insert(ctx context.Context, r *domain.Recommendation) error {
	if r == nil || r.SignalID == "" {
		return storage.ErrInvalidInput
	}

	reasoning, err := json.Marshal(r.Reasoning)
	if err != nil {
		return fmt.Errorf("marshal reasoning: %w", err)
	}
	warnings, err := json.Marshal(r.Risk.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	observations, err := json.Marshal(r.KeyObservations)
	if err != nil {
		return fmt.Errorf("marshal observations: %w", err)
	}

	query := `
		INSERT INTO recommendations (` + recommendationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = s.pool.Exec(ctx, query,
		r.SignalID, r.Action.String(), r.Confidence, reasoning,
		r.Entry.EntryPriceUSD, r.Entry.StopLossPct, r.Entry.TakeProfitPct,
		string(r.Entry.PositionSize), r.Entry.MaxPositionUSD, string(r.Entry.TimeHorizon),
		r.Risk.RugRisk, r.Risk.VolatilityRisk, r.Risk.LiquidityRisk,
		r.Risk.OverallRisk.String(), warnings,
		observations, r.Model, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// GetBySignalID retrieves the recommendation for a signal. Returns ErrNotFound if not exists.
func (s *RecommendationStore) GetBySignalID(ctx context.Context, signalID string) (*domain.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE signal_id = $1`

	row := s.pool.QueryRow(ctx, query, signalID)
	r, err := scanRecommendation(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get recommendation by signal id: %w", err)
	}
	return r, nil
}

// GetRecent retrieves the most recent recommendations, ordered by created_at DESC.
func (s *RecommendationStore) GetRecent(ctx context.Context, limit int) ([]*domain.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		ORDER BY created_at_ms DESC, signal_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent recommendations: %w", err)
	}
	defer rows.Close()

	var recs []*domain.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation row: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendation rows: %w", err)
	}
	return recs, nil
}

// scanRecommendation scans a single row into a Recommendation.
func scanRecommendation(row pgx.Row) (*domain.Recommendation, error) {
	var r domain.Recommendation
	var actionStr, sizeStr, horizonStr, riskStr string
	var reasoning, warnings, observations []byte

	err := row.Scan(
		&r.SignalID, &actionStr, &r.Confidence, &reasoning,
		&r.Entry.EntryPriceUSD, &r.Entry.StopLossPct, &r.Entry.TakeProfitPct,
		&sizeStr, &r.Entry.MaxPositionUSD, &horizonStr,
		&r.Risk.RugRisk, &r.Risk.VolatilityRisk, &r.Risk.LiquidityRisk,
		&riskStr, &warnings,
		&observations, &r.Model, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Action = domain.ParseAction(actionStr)
	r.Entry.PositionSize = domain.ParsePositionSize(sizeStr)
	r.Entry.TimeHorizon = domain.ParseTimeHorizon(horizonStr)
	r.Risk.OverallRisk = domain.ParseRiskLevel(riskStr)

	if err := json.Unmarshal(reasoning, &r.Reasoning); err != nil {
		return nil, fmt.Errorf("unmarshal reasoning: %w", err)
	}
	if err := json.Unmarshal(warnings, &r.Risk.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	if err := json.Unmarshal(observations, &r.KeyObservations); err != nil {
		return nil, fmt.Errorf("unmarshal observations: %w", err)
	}

	return &r, nil
}
