// Package tracker records operator dispositions on notified tokens. A
// dismissed token stays out of notifications until it is tracked again.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tokenradar/internal/domain"
	"tokenradar/internal/storage"
)

// Options configures a Service.
type Options struct {
	Store  storage.TrackedTokenStore
	Clock  func() time.Time
	Logger zerolog.Logger
}

// Service applies track/dismiss actions to the disposition store.
type Service struct {
	store storage.TrackedTokenStore
	now   func() time.Time
	log   zerolog.Logger
}

// New creates a Service, applying defaults.
func New(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		store: opts.Store,
		now:   opts.Clock,
		log:   opts.Logger,
	}
}

// Track marks a token as tracked, replacing any earlier dismissal.
func (s *Service) Track(ctx context.Context, chain, tokenAddress string) error {
	return s.setStatus(ctx, chain, tokenAddress, domain.StatusTracked)
}

// Dismiss marks a token as dismissed, silencing its future notifications.
func (s *Service) Dismiss(ctx context.Context, chain, tokenAddress string) error {
	return s.setStatus(ctx, chain, tokenAddress, domain.StatusDismissed)
}

func (s *Service) setStatus(ctx context.Context, chain, tokenAddress string, status domain.TrackStatus) error {
	if chain == "" || tokenAddress == "" {
		return fmt.Errorf("%w: chain and token address required", storage.ErrInvalidInput)
	}

	t := &domain.TrackedToken{
		Chain:        chain,
		TokenAddress: tokenAddress,
		Status:       status,
		UpdatedAt:    s.now().UnixMilli(),
	}
	if err := s.store.Upsert(ctx, t); err != nil {
		return fmt.Errorf("upsert tracked token: %w", err)
	}

	s.log.Info().
		Str("token", t.Key()).
		Str("status", string(status)).
		Msg("token disposition updated")
	return nil
}

// IsDismissed reports whether the token is currently dismissed. Unknown
// tokens are not dismissed; store errors are logged and treated the same,
// so a storage outage never silences notifications.
func (s *Service) IsDismissed(ctx context.Context, chain, tokenAddress string) bool {
	t, err := s.store.Get(ctx, chain, tokenAddress)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).
				Str("token", chain+":"+tokenAddress).
				Msg("tracked token lookup failed")
		}
		return false
	}
	return t.Status == domain.StatusDismissed
}

// Tracked lists tokens currently marked as tracked, most recent first.
func (s *Service) Tracked(ctx context.Context) ([]*domain.TrackedToken, error) {
	return s.store.List(ctx, domain.StatusTracked)
}

// Dismissed lists tokens currently dismissed, most recent first.
func (s *Service) Dismissed(ctx context.Context) ([]*domain.TrackedToken, error) {
	return s.store.List(ctx, domain.StatusDismissed)
}
