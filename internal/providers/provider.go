// Package providers defines the adapter contract for external token data
// platforms and the shared request budgeting they use. Adapters map raw
// platform payloads onto scoring observations; they never score or filter
// on their own.
package providers

import (
	"context"

	"tokenradar/internal/domain"
)

// Provider is one external platform adapter. Implementations must be safe
// for concurrent use and must return errors instead of panicking; the
// aggregator decides what a failed provider means for the cycle.
type Provider interface {
	// Name returns the platform identifier used in signal sources.
	Name() string

	// Enabled reports whether the adapter is configured and usable.
	Enabled() bool

	// NewListings returns scored signals for recently listed tokens.
	NewListings(ctx context.Context, chain string) ([]*domain.Signal, error)

	// Trending returns scored signals for tokens gaining attention.
	Trending(ctx context.Context, chain string) ([]*domain.Signal, error)

	// RemainingRequests returns how many requests remain in the current
	// daily budget. UnlimitedBudget means the platform has no hard quota.
	RemainingRequests() int
}
