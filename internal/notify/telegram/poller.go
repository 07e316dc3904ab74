package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tokenradar/internal/tracker"
)

// DefaultPollTimeout is the getUpdates long-poll window.
const DefaultPollTimeout = 30 * time.Second

// PollerOptions configures a Poller.
type PollerOptions struct {
	Notifier    *Notifier
	Tracker     *tracker.Service
	PollTimeout time.Duration
	Logger      zerolog.Logger
}

// Poller long-polls getUpdates and applies track/dismiss button presses to
// the tracker service.
type Poller struct {
	notifier    *Notifier
	tracker     *tracker.Service
	pollTimeout time.Duration
	log         zerolog.Logger

	offset int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewPoller creates a Poller, applying defaults.
func NewPoller(opts PollerOptions) *Poller {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	return &Poller{
		notifier:    opts.Notifier,
		tracker:     opts.Tracker,
		pollTimeout: opts.PollTimeout,
		log:         opts.Logger,
	}
}

// update is the subset of a Bot API update we handle.
type update struct {
	UpdateID      int64 `json:"update_id"`
	CallbackQuery *struct {
		ID   string `json:"id"`
		Data string `json:"data"`
	} `json:"callback_query"`
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

// Start launches the poll loop. Idempotent.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx)
}

// Stop terminates the poll loop and waits for it to exit. Idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn().Err(err).Msg("getUpdates failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= p.offset {
				p.offset = u.UpdateID + 1
			}
			p.handle(ctx, u)
		}
	}
}

func (p *Poller) fetch(ctx context.Context) ([]update, error) {
	ctx, cancel := context.WithTimeout(ctx, p.pollTimeout+10*time.Second)
	defer cancel()

	var updates []update
	err := p.notifier.do(ctx, "getUpdates", getUpdatesRequest{
		Offset:         p.offset,
		Timeout:        int(p.pollTimeout / time.Second),
		AllowedUpdates: []string{"callback_query"},
	}, &updates)
	return updates, err
}

// handle applies one callback query. Unknown payloads are acknowledged and
// ignored so the button never spins forever in the client.
func (p *Poller) handle(ctx context.Context, u update) {
	if u.CallbackQuery == nil {
		return
	}

	data := u.CallbackQuery.Data
	var reply string
	switch {
	case strings.HasPrefix(data, CallbackTrack):
		chain, addr, ok := splitKey(strings.TrimPrefix(data, CallbackTrack))
		if ok && p.tracker.Track(ctx, chain, addr) == nil {
			reply = "Tracking " + addr
		}
	case strings.HasPrefix(data, CallbackDismiss):
		chain, addr, ok := splitKey(strings.TrimPrefix(data, CallbackDismiss))
		if ok && p.tracker.Dismiss(ctx, chain, addr) == nil {
			reply = "Dismissed " + addr
		}
	}

	if err := p.notifier.do(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: u.CallbackQuery.ID,
		Text:            reply,
	}, nil); err != nil {
		p.log.Warn().Err(err).Str("data", data).Msg("answerCallbackQuery failed")
	}
}

// splitKey parses a chain:address composite key.
func splitKey(key string) (chain, addr string, ok bool) {
	i := strings.IndexByte(key, ':')
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}
