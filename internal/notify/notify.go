// Package notify delivers accepted recommendations to the operator.
package notify

import (
	"context"

	"tokenradar/internal/domain"
)

// Notifier is one delivery channel for recommendations and alerts.
type Notifier interface {
	// Ready reports whether the channel is configured and usable.
	Ready() bool

	// SendRecommendation delivers one signal with its recommendation.
	SendRecommendation(ctx context.Context, sig *domain.Signal, rec *domain.Recommendation) error

	// SendAlert delivers a plain operational message.
	SendAlert(ctx context.Context, text string) error
}
