// Package pumpfun adapts the pump.fun launch stream (via the PumpPortal
// websocket feed). Token creation events are converted to signals as they
// arrive and buffered; NewListings drains the buffer on each scan cycle.
package pumpfun

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tokenradar/internal/domain"
	"tokenradar/internal/providers"
	"tokenradar/internal/scoring"
	"tokenradar/internal/solana"
)

// Default configuration values.
const (
	DefaultEndpoint          = "wss://pumpportal.fun/api/data"
	DefaultReconnectDelay    = 1 * time.Second
	DefaultMaxReconnectDelay = 30 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultReadTimeout       = 60 * time.Second
	DefaultWriteTimeout      = 10 * time.Second

	// DefaultSolPriceUSD converts bonding-curve SOL amounts to USD when no
	// live price source is wired. Launch-stream signals are coarse by
	// nature; the advisory layer treats them accordingly.
	DefaultSolPriceUSD = 200.0

	platformName = "pumpfun"

	// sourceConfidence is low: launch events carry no market history.
	sourceConfidence = 60

	// maxBuffer bounds the event buffer between scan cycles. When full,
	// the oldest events are dropped.
	maxBuffer = 256
)

// Stream implements providers.Provider over the pump.fun websocket feed.
type Stream struct {
	endpoint    string
	solPriceUSD float64
	now         func() time.Time
	log         zerolog.Logger

	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration
	pingInterval      time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration

	conn         *websocket.Conn
	connMu       sync.Mutex
	closed       atomic.Bool
	reconnecting atomic.Bool
	done         chan struct{}
	wg           sync.WaitGroup

	bufMu   sync.Mutex
	buf     []*domain.Signal
	dropped atomic.Int64
}

// Option configures Stream.
type Option func(*Stream)

// WithEndpoint overrides the websocket endpoint.
func WithEndpoint(url string) Option {
	return func(s *Stream) {
		s.endpoint = url
	}
}

// WithSolPriceUSD sets the SOL/USD conversion rate for bonding-curve math.
func WithSolPriceUSD(price float64) Option {
	return func(s *Stream) {
		s.solPriceUSD = price
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Stream) {
		s.log = log
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Stream) {
		s.now = now
	}
}

// NewStream connects to the feed, subscribes to new-token events and starts
// the read and ping loops. Callers must Close the stream when done.
func NewStream(ctx context.Context, opts ...Option) (*Stream, error) {
	s := &Stream{
		endpoint:          DefaultEndpoint,
		solPriceUSD:       DefaultSolPriceUSD,
		now:               time.Now,
		log:               zerolog.Nop(),
		reconnectDelay:    DefaultReconnectDelay,
		maxReconnectDelay: DefaultMaxReconnectDelay,
		pingInterval:      DefaultPingInterval,
		readTimeout:       DefaultReadTimeout,
		writeTimeout:      DefaultWriteTimeout,
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(); err != nil {
		s.conn.Close()
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

// Compile-time interface check.
var _ providers.Provider = (*Stream)(nil)

// Name returns the platform identifier.
func (s *Stream) Name() string { return platformName }

// Enabled reports whether the stream has not been closed.
func (s *Stream) Enabled() bool { return !s.closed.Load() }

// RemainingRequests reports an unlimited budget; the feed is push-based.
func (s *Stream) RemainingRequests() int { return providers.UnlimitedBudget }

// NewListings drains and returns all buffered launch signals.
func (s *Stream) NewListings(_ context.Context, chain string) ([]*domain.Signal, error) {
	if chain != "solana" {
		return nil, nil
	}

	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	out := s.buf
	s.buf = nil
	return out, nil
}

// Trending is not served by the launch stream.
func (s *Stream) Trending(context.Context, string) ([]*domain.Signal, error) {
	return nil, nil
}

// Dropped returns how many events were discarded to a full buffer.
func (s *Stream) Dropped() int64 { return s.dropped.Load() }

// Close shuts the stream down. Safe to call more than once.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// connect establishes the websocket connection.
func (s *Stream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	s.conn = conn
	return nil
}

// subscribe sends the new-token subscription request.
func (s *Stream) subscribe() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteJSON(map[string]string{"method": "subscribeNewToken"}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads events and reconnects with exponential backoff on failure.
func (s *Stream) readLoop() {
	defer s.wg.Done()

	delay := s.reconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(delay)
			}
			delay *= 2
			if delay > s.maxReconnectDelay {
				delay = s.maxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		delay = s.reconnectDelay
		s.handleMessage(message)
	}
}

// reconnect re-establishes the connection and resubscribes.
func (s *Stream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.log.Warn().Err(err).Msg("pumpfun reconnect failed, will retry")
		return
	}
	if err := s.subscribe(); err != nil {
		s.log.Warn().Err(err).Msg("pumpfun resubscribe failed")
		return
	}
	s.log.Info().Msg("pumpfun stream reconnected")
}

// pingLoop keeps the connection alive.
func (s *Stream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
				// Reader handles reconnect if the connection is dead.
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

// newTokenEvent is one creation event from the feed.
type newTokenEvent struct {
	TxType                string  `json:"txType"`
	Mint                  string  `json:"mint"`
	Name                  string  `json:"name"`
	Symbol                string  `json:"symbol"`
	MarketCapSol          float64 `json:"marketCapSol"`
	SolAmount             float64 `json:"solAmount"`
	VSolInBondingCurve    float64 `json:"vSolInBondingCurve"`
	VTokensInBondingCurve float64 `json:"vTokensInBondingCurve"`
}

// handleMessage converts a creation event to a signal and buffers it.
func (s *Stream) handleMessage(message []byte) {
	var ev newTokenEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return
	}
	if ev.Mint == "" || (ev.TxType != "" && ev.TxType != "create") {
		return
	}
	if !solana.IsValidAddress(ev.Mint) {
		return
	}
	if ev.VTokensInBondingCurve <= 0 {
		return
	}

	nowMs := s.now().UnixMilli()
	priceUSD := ev.VSolInBondingCurve / ev.VTokensInBondingCurve * s.solPriceUSD

	obs := scoring.Observation{
		Chain:        "solana",
		TokenAddress: ev.Mint,
		Type:         domain.TypeNewListing,
		Platform:     platformName,
		Confidence:   sourceConfidence,
		Token: domain.TokenSnapshot{
			Symbol:       ev.Symbol,
			Name:         ev.Name,
			PriceUSD:     priceUSD,
			MarketCapUSD: ev.MarketCapSol * s.solPriceUSD,
			LiquidityUSD: ev.VSolInBondingCurve * s.solPriceUSD,
			Volume24hUSD: ev.SolAmount * s.solPriceUSD,
			CreatedAt:    nowMs,
		},
		Raw: json.RawMessage(message),
	}

	sig, err := scoring.Build(obs, nowMs)
	if err != nil {
		return
	}

	s.bufMu.Lock()
	if len(s.buf) >= maxBuffer {
		s.buf = s.buf[1:]
		s.dropped.Add(1)
	}
	s.buf = append(s.buf, sig)
	s.bufMu.Unlock()
}
