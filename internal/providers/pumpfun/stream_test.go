package pumpfun

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tokenradar/internal/domain"
	"tokenradar/internal/providers"
)

const mintSOL = "So11111111111111111111111111111111111111112"

func testStream() *Stream {
	return &Stream{
		solPriceUSD: 200,
		now:         func() time.Time { return time.UnixMilli(1_700_000_000_000) },
		log:         zerolog.Nop(),
		done:        make(chan struct{}),
	}
}

func createEvent(mint string) string {
	return fmt.Sprintf(`{
		"txType": "create", "mint": %q, "name": "Pump Token", "symbol": "PUMP",
		"marketCapSol": 30, "solAmount": 2,
		"vSolInBondingCurve": 30, "vTokensInBondingCurve": 1000000000
	}`, mint)
}

func TestHandleMessage_BuildsSignal(t *testing.T) {
	s := testStream()
	s.handleMessage([]byte(createEvent(mintSOL)))

	signals, err := s.NewListings(context.Background(), "solana")
	if err != nil {
		t.Fatalf("NewListings failed: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("len = %d, want 1", len(signals))
	}

	sig := signals[0]
	if sig.Type != domain.TypeNewListing || sig.TokenAddress != mintSOL {
		t.Errorf("unexpected signal: %+v", sig)
	}
	if sig.Token.PriceUSD <= 0 {
		t.Errorf("price = %v, want positive USD conversion", sig.Token.PriceUSD)
	}
	if sig.Token.MarketCapUSD != 30*200 {
		t.Errorf("market cap = %v, want 6000", sig.Token.MarketCapUSD)
	}
	if !sig.IsNewToken(1_700_000_000_000) {
		t.Error("launch signal must count as a new token")
	}

	// Buffer drained: second call returns nothing.
	signals, _ = s.NewListings(context.Background(), "solana")
	if len(signals) != 0 {
		t.Errorf("second drain len = %d, want 0", len(signals))
	}
}

func TestHandleMessage_SkipsInvalid(t *testing.T) {
	s := testStream()

	s.handleMessage([]byte(`not json`))
	s.handleMessage([]byte(createEvent("not-a-mint")))
	s.handleMessage([]byte(strings.Replace(createEvent(mintSOL), `"create"`, `"buy"`, 1)))

	signals, _ := s.NewListings(context.Background(), "solana")
	if len(signals) != 0 {
		t.Errorf("len = %d, want 0 for invalid events", len(signals))
	}
}

func TestHandleMessage_BufferCap(t *testing.T) {
	s := testStream()

	event := []byte(createEvent(mintSOL))
	for i := 0; i < maxBuffer+10; i++ {
		s.handleMessage(event)
	}

	signals, _ := s.NewListings(context.Background(), "solana")
	if len(signals) != maxBuffer {
		t.Errorf("len = %d, want capped at %d", len(signals), maxBuffer)
	}
	if s.Dropped() != 10 {
		t.Errorf("dropped = %d, want 10", s.Dropped())
	}
}

func TestStream_SubscribeAndReceive(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Expect the subscription request first.
		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil || sub["method"] != "subscribeNewToken" {
			t.Errorf("unexpected subscription: %v (err %v)", sub, err)
			return
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(createEvent(mintSOL))); err != nil {
			return
		}
		// Keep the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	stream, err := NewStream(context.Background(), WithEndpoint(wsURL))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}
	defer stream.Close()

	if stream.RemainingRequests() != providers.UnlimitedBudget {
		t.Error("stream budget must be unlimited")
	}

	deadline := time.After(5 * time.Second)
	for {
		signals, err := stream.NewListings(context.Background(), "solana")
		if err != nil {
			t.Fatalf("NewListings failed: %v", err)
		}
		if len(signals) == 1 {
			if signals[0].TokenAddress != mintSOL {
				t.Errorf("address = %s, want %s", signals[0].TokenAddress, mintSOL)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for streamed signal")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
