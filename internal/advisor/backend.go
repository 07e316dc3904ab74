// Package advisor turns filtered signals into trade recommendations. A
// deterministic rule engine is always available; optional delegated
// backends (an LLM service) plug in behind the same contract, with the
// router guaranteeing every signal gets an answer.
package advisor

import (
	"context"

	"tokenradar/internal/domain"
)

// Backend is one advisory implementation.
type Backend interface {
	// Name returns the backend identifier used in logs and stats.
	Name() string

	// Analyze produces a recommendation for one signal. May fail for
	// delegated backends; the router handles fallback.
	Analyze(ctx context.Context, sig *domain.Signal) (*domain.Recommendation, error)
}
