// Package console is the fallback notifier used when no external channel is
// configured. Recommendations land in the structured log.
package console

import (
	"context"

	"github.com/rs/zerolog"

	"tokenradar/internal/domain"
	"tokenradar/internal/notify"
)

// Notifier writes recommendations to a zerolog logger.
type Notifier struct {
	log zerolog.Logger
}

// New creates a console notifier.
func New(log zerolog.Logger) *Notifier {
	return &Notifier{log: log}
}

// Compile-time interface check.
var _ notify.Notifier = (*Notifier)(nil)

// Ready always reports true; the log is always available.
func (n *Notifier) Ready() bool { return true }

// SendRecommendation logs the recommendation at info level.
func (n *Notifier) SendRecommendation(_ context.Context, sig *domain.Signal, rec *domain.Recommendation) error {
	n.log.Info().
		Str("token", sig.Key()).
		Str("symbol", sig.Token.Symbol).
		Int("score", sig.Score).
		Str("action", rec.Action.String()).
		Int("confidence", rec.Confidence).
		Str("risk", rec.Risk.OverallRisk.String()).
		Float64("entry_usd", rec.Entry.EntryPriceUSD).
		Str("position", string(rec.Entry.PositionSize)).
		Str("model", rec.Model).
		Strs("reasoning", rec.Reasoning).
		Msg("recommendation")
	return nil
}

// SendAlert logs the alert at warn level.
func (n *Notifier) SendAlert(_ context.Context, text string) error {
	n.log.Warn().Msg(text)
	return nil
}
