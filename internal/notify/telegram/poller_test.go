package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tokenradar/internal/storage/memory"
	"tokenradar/internal/tracker"
)

func TestPoller_DispatchesCallbacks(t *testing.T) {
	var served atomic.Bool
	var answered atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served.CompareAndSwap(false, true) {
				fmt.Fprint(w, `{"ok": true, "result": [
					{"update_id": 7, "callback_query": {"id": "cb1", "data": "dismiss:solana:MintAAA"}},
					{"update_id": 8, "callback_query": {"id": "cb2", "data": "garbage"}}
				]}`)
				return
			}
			// Later polls block briefly then come back empty, like a
			// real long poll with no traffic.
			time.Sleep(10 * time.Millisecond)
			fmt.Fprint(w, `{"ok": true, "result": []}`)
		case strings.HasSuffix(r.URL.Path, "/answerCallbackQuery"):
			var req answerCallbackRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode answer: %v", err)
			}
			answered.Add(1)
			fmt.Fprint(w, `{"ok": true, "result": true}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	svc := tracker.New(tracker.Options{Store: memory.NewTrackedTokenStore()})
	n := New(Options{BotToken: "123:abc", ChatID: "42", APIBase: srv.URL, SendRate: 1000})
	p := NewPoller(PollerOptions{Notifier: n, Tracker: svc, PollTimeout: time.Second})

	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for !svc.IsDismissed(context.Background(), "solana", "MintAAA") {
		select {
		case <-deadline:
			t.Fatal("dismissal never applied")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Both callbacks get acknowledged, including the unparseable one.
	for answered.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("answered %d callbacks, want 2", answered.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPoller_StartStopIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		fmt.Fprint(w, `{"ok": true, "result": []}`)
	}))
	defer srv.Close()

	svc := tracker.New(tracker.Options{Store: memory.NewTrackedTokenStore()})
	n := New(Options{BotToken: "123:abc", ChatID: "42", APIBase: srv.URL, SendRate: 1000})
	p := NewPoller(PollerOptions{Notifier: n, Tracker: svc, PollTimeout: time.Second})

	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx) // no second loop
	p.Stop()
	p.Stop() // no panic
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key         string
		chain, addr string
		ok          bool
	}{
		{"solana:MintAAA", "solana", "MintAAA", true},
		{"solana:", "", "", false},
		{":MintAAA", "", "", false},
		{"noseparator", "", "", false},
	}
	for _, tt := range tests {
		chain, addr, ok := splitKey(tt.key)
		if chain != tt.chain || addr != tt.addr || ok != tt.ok {
			t.Errorf("splitKey(%q) = %q, %q, %v", tt.key, chain, addr, ok)
		}
	}
}
