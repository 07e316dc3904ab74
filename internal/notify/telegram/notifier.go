// Package telegram delivers recommendations through the Telegram Bot API,
// with inline track/dismiss buttons wired back via the long-poller.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tokenradar/internal/domain"
	"tokenradar/internal/notify"
)

// DefaultAPIBase is the Telegram Bot API root.
const DefaultAPIBase = "https://api.telegram.org"

// Telegram allows ~20 messages per minute to the same group chat.
const defaultSendRate = rate.Limit(20.0 / 60.0)

// Callback data prefixes understood by the poller.
const (
	CallbackTrack   = "track:"
	CallbackDismiss = "dismiss:"
)

// Options configures a Notifier.
type Options struct {
	BotToken   string
	ChatID     string
	APIBase    string        // defaults to DefaultAPIBase
	HTTPClient *http.Client  // defaults to a 30s-timeout client
	SendRate   rate.Limit    // defaults to the group chat limit
	Logger     zerolog.Logger
}

// Notifier sends recommendations via the Bot API sendMessage method.
type Notifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New creates a telegram Notifier, applying defaults.
func New(opts Options) *Notifier {
	if opts.APIBase == "" {
		opts.APIBase = DefaultAPIBase
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.SendRate <= 0 {
		opts.SendRate = defaultSendRate
	}
	return &Notifier{
		token:   opts.BotToken,
		chatID:  opts.ChatID,
		apiBase: opts.APIBase,
		client:  opts.HTTPClient,
		limiter: rate.NewLimiter(opts.SendRate, 1),
		log:     opts.Logger,
	}
}

// Compile-time interface check.
var _ notify.Notifier = (*Notifier)(nil)

// Ready reports whether both the bot token and chat are configured.
func (n *Notifier) Ready() bool {
	return n.token != "" && n.chatID != ""
}

// sendMessageRequest is the Bot API sendMessage payload.
type sendMessageRequest struct {
	ChatID                string       `json:"chat_id"`
	Text                  string       `json:"text"`
	ParseMode             string       `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool         `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// apiResponse is the generic Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// SendRecommendation formats and sends one recommendation with inline
// track/dismiss buttons.
func (n *Notifier) SendRecommendation(ctx context.Context, sig *domain.Signal, rec *domain.Recommendation) error {
	key := sig.Key()
	req := sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  formatRecommendation(sig, rec),
		DisableWebPagePreview: true,
		ReplyMarkup: &replyMarkup{
			InlineKeyboard: [][]inlineButton{{
				{Text: "Track", CallbackData: CallbackTrack + key},
				{Text: "Dismiss", CallbackData: CallbackDismiss + key},
			}},
		},
	}

	if err := n.call(ctx, "sendMessage", req, nil); err != nil {
		return err
	}

	n.log.Debug().
		Str("token", key).
		Str("action", rec.Action.String()).
		Msg("telegram recommendation sent")
	return nil
}

// SendAlert sends a plain text message without buttons.
func (n *Notifier) SendAlert(ctx context.Context, text string) error {
	return n.call(ctx, "sendMessage", sendMessageRequest{
		ChatID: n.chatID,
		Text:   text,
	}, nil)
}

// call posts one Bot API method, honoring the send rate limiter.
func (n *Notifier) call(ctx context.Context, method string, payload, result interface{}) error {
	if !n.Ready() {
		return fmt.Errorf("telegram: bot token or chat id not configured")
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	return n.do(ctx, method, payload, result)
}

// do posts one Bot API method without rate limiting. The poller uses it
// directly; long polls must not compete with message sends for the limiter.
func (n *Notifier) do(ctx context.Context, method string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", n.apiBase, n.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("telegram API error on %s: %s", method, api.Description)
	}
	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

// formatRecommendation renders a plain-text message. Markdown is avoided so
// token names with special characters cannot break parsing.
func formatRecommendation(sig *domain.Signal, rec *domain.Recommendation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s (%s)\n", actionEmoji(rec.Action), sig.Token.Symbol, strings.ToUpper(rec.Action.String()))
	fmt.Fprintf(&b, "%s on %s\n\n", sig.TokenAddress, sig.Chain)

	fmt.Fprintf(&b, "Score %d | Confidence %d | Risk %s\n", sig.Score, rec.Confidence, rec.Risk.OverallRisk)
	fmt.Fprintf(&b, "Price $%.8f | Liq $%.0f | Vol24h $%.0f\n\n",
		sig.Token.PriceUSD, sig.Token.LiquidityUSD, sig.Token.Volume24hUSD)

	fmt.Fprintf(&b, "Entry $%.8f | SL %.0f%% | TP %.0f%%\n",
		rec.Entry.EntryPriceUSD, rec.Entry.StopLossPct, rec.Entry.TakeProfitPct)
	fmt.Fprintf(&b, "Position %s (max $%.0f) | Horizon %s\n",
		rec.Entry.PositionSize, rec.Entry.MaxPositionUSD, rec.Entry.TimeHorizon)

	if len(rec.Reasoning) > 0 {
		b.WriteString("\n")
		for _, r := range rec.Reasoning {
			fmt.Fprintf(&b, "• %s\n", r)
		}
	}
	if len(rec.Risk.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range rec.Risk.Warnings {
			fmt.Fprintf(&b, "⚠ %s\n", w)
		}
	}

	fmt.Fprintf(&b, "\nvia %s", rec.Model)
	return b.String()
}

func actionEmoji(a domain.Action) string {
	switch a {
	case domain.ActionStrongBuy:
		return "🚀"
	case domain.ActionBuy:
		return "✅"
	case domain.ActionWatch:
		return "👀"
	default:
		return "⛔"
	}
}
