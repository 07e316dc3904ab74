package providers

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UnlimitedBudget marks a platform without a hard daily quota.
const UnlimitedBudget = 1 << 30

// ErrBudgetExhausted is returned when the daily request quota is spent.
// The adapter stays enabled; the budget resets at the next UTC day.
var ErrBudgetExhausted = errors.New("daily request budget exhausted")

// RequestBudget combines a short-term rate limiter with a daily request
// counter. The counter resets when the UTC day changes.
type RequestBudget struct {
	limiter *rate.Limiter
	now     func() time.Time

	mu         sync.Mutex
	dailyLimit int
	used       int
	day        int // days since epoch, UTC
}

// NewRequestBudget creates a budget allowing rps requests per second with
// the given burst, and at most dailyLimit requests per UTC day. Pass
// UnlimitedBudget for platforms without a quota. A nil now defaults to
// time.Now.
func NewRequestBudget(rps rate.Limit, burst, dailyLimit int, now func() time.Time) *RequestBudget {
	if now == nil {
		now = time.Now
	}
	b := &RequestBudget{
		limiter:    rate.NewLimiter(rps, burst),
		now:        now,
		dailyLimit: dailyLimit,
	}
	b.day = epochDay(now())
	return b
}

// Take consumes one request from the budget, blocking on the rate limiter.
// Returns ErrBudgetExhausted without blocking when the daily quota is spent.
func (b *RequestBudget) Take(ctx context.Context) error {
	b.mu.Lock()
	b.rollover()
	if b.used >= b.dailyLimit {
		b.mu.Unlock()
		return ErrBudgetExhausted
	}
	b.used++
	b.mu.Unlock()

	return b.limiter.Wait(ctx)
}

// Remaining returns how many requests remain in the current daily budget.
func (b *RequestBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()
	if b.dailyLimit >= UnlimitedBudget {
		return UnlimitedBudget
	}
	remaining := b.dailyLimit - b.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// rollover resets the counter when the UTC day changed. Callers must hold mu.
func (b *RequestBudget) rollover() {
	today := epochDay(b.now())
	if today != b.day {
		b.day = today
		b.used = 0
	}
}

func epochDay(t time.Time) int {
	return int(t.UTC().Unix() / 86400)
}
