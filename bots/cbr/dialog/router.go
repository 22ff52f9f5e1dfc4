// Package dialog is the per-chat conversation state machine of the bot.
// It turns an inbound Event into a Reply and never talks to Telegram itself.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/cbrbot/bots/cbr/conversion"
	"github.com/m3rciful/cbrbot/bots/cbr/currency"
	"github.com/m3rciful/cbrbot/core/logger"
	"github.com/m3rciful/cbrbot/core/metrics"
	"github.com/m3rciful/cbrbot/core/telegram/state"
)

// StateConverter marks a chat whose next text message is a conversion request.
const StateConverter state.State = "converter"

const dateLayout = "2006-01-02"

// Callback data understood by the router. Anything else is ignored.
const (
	CallbackConverter     = "CONVERTER_BUTTON"
	CallbackConverterHelp = "HELP_CONVERTER_COMMAND"
	CallbackHelp          = "HELP"
)

// Commands understood in the idle state.
const (
	CommandStart     = "/start"
	CommandConverter = "/converter"
	CommandHelp      = "/help"
)

// RateSource returns the ruble price of one unit of a currency.
type RateSource interface {
	Rate(ctx context.Context, cur currency.Currency) (decimal.Decimal, error)
}

// Quote is a successfully fetched rate.
type Quote struct {
	Date      time.Time
	Code      currency.Code
	Rate      decimal.Decimal
	FetchedAt time.Time
}

// QuoteRecorder keeps fetched quotes. Its failures never change a reply.
type QuoteRecorder interface {
	Record(ctx context.Context, q Quote) error
}

// Event is one inbound update. Callback is set for button presses, Text otherwise.
type Event struct {
	ChatID   int64
	Text     string
	Callback string
	// Name addresses the user in the /start greeting.
	Name string
}

// Options wires a Router. Store and Rates are required.
type Options struct {
	Store   state.Store
	Rates   RateSource
	Journal QuoteRecorder
	Queue   *state.ChatQueue
	Now     func() time.Time
}

// Router owns the per-chat mode and decides the reply for each event.
// Events of one chat are handled one at a time; chats never block each other.
type Router struct {
	store   state.Store
	rates   RateSource
	journal QuoteRecorder
	queue   *state.ChatQueue
	now     func() time.Time
}

// NewRouter builds a Router.
func NewRouter(opts Options) *Router {
	r := &Router{
		store:   opts.Store,
		rates:   opts.Rates,
		journal: opts.Journal,
		queue:   opts.Queue,
		now:     opts.Now,
	}
	if r.store == nil {
		r.store = state.NewMemoryStore()
	}
	if r.queue == nil {
		r.queue = state.NewChatQueue()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Handle processes ev and returns the reply to send. A zero Reply means the
// event is ignored. The error is non-nil only when the chat state could not
// be read or written.
func (r *Router) Handle(ctx context.Context, ev Event) (Reply, error) {
	var reply Reply
	err := r.queue.Run(ctx, ev.ChatID, func(ctx context.Context) error {
		var err error
		reply, err = r.handle(ctx, ev)
		return err
	})
	return reply, err
}

// State reports the chat's current mode.
func (r *Router) State(ctx context.Context, chatID int64) (state.State, error) {
	return r.store.GetState(ctx, chatID)
}

// handle reads the chat state once; every branch below works from that value.
func (r *Router) handle(ctx context.Context, ev Event) (Reply, error) {
	current, err := r.store.GetState(ctx, ev.ChatID)
	if err != nil {
		return Reply{}, fmt.Errorf("dialog: read state: %w", err)
	}
	if ev.Callback != "" {
		return r.handleCallback(ctx, ev, current)
	}
	if current == StateConverter {
		return r.handleConversion(ctx, ev)
	}
	return r.handleCommand(ctx, ev, current)
}

func (r *Router) handleCallback(ctx context.Context, ev Event, current state.State) (Reply, error) {
	switch strings.TrimSpace(ev.Callback) {
	case CallbackConverter:
		return r.enterConverter(ctx, ev.ChatID, current)
	case CallbackConverterHelp:
		return reply(ev.ChatID, TextWithConverterHelpButton, converterHelpText), nil
	case CallbackHelp:
		return reply(ev.ChatID, TextWithMainKeyboard, helpText), nil
	default:
		logger.Dialog.LogAttrs(ctx, slog.LevelDebug, "callback ignored",
			slog.String("event", "dialog.callback"),
			slog.String("status", "skip"),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("cb_key", logger.SanitizeLimit(ev.Callback, 64)),
		)
		return Reply{}, nil
	}
}

func (r *Router) handleCommand(ctx context.Context, ev Event, current state.State) (Reply, error) {
	cmd := commandName(ev.Text)
	switch cmd {
	case CommandStart:
		return reply(ev.ChatID, TextWithMainKeyboard, startText(ev.Name)), nil
	case CommandConverter:
		return r.enterConverter(ctx, ev.ChatID, current)
	case CommandHelp:
		return reply(ev.ChatID, TextWithMainKeyboard, helpText), nil
	}
	if cur, ok := rateCommand(cmd); ok {
		return reply(ev.ChatID, TextWithMainKeyboard, r.rateText(ctx, cur)), nil
	}
	return reply(ev.ChatID, TextWithMainKeyboard, unknownCommandText), nil
}

// handleConversion answers one converter-mode message and always returns the chat to idle.
func (r *Router) handleConversion(ctx context.Context, ev Event) (Reply, error) {
	if err := r.transition(ctx, ev.ChatID, StateConverter, state.StateIdle); err != nil {
		return Reply{}, err
	}

	req := conversion.Parse(ev.Text)
	switch req.Kind {
	case conversion.Terminate:
		metrics.ConversionsTotal.WithLabelValues("exit").Inc()
		return reply(ev.ChatID, TextWithMainKeyboard, converterExitText), nil
	case conversion.Invalid:
		metrics.ConversionsTotal.WithLabelValues("invalid").Inc()
		logger.Dialog.LogAttrs(ctx, slog.LevelInfo, "conversion rejected",
			slog.String("event", "dialog.convert"),
			slog.String("status", "skip"),
			slog.String("outcome", "invalid"),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("payload", logger.SanitizeLimit(ev.Text, 64)),
		)
		return reply(ev.ChatID, TextWithModeButtons, invalidRequestText), nil
	}

	rate, err := r.fetch(ctx, req.Currency)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("unavailable").Inc()
		return reply(ev.ChatID, TextWithMainKeyboard, fmt.Sprintf(rateFailureFormat, req.Currency.Genitive)), nil
	}
	metrics.ConversionsTotal.WithLabelValues("ok").Inc()
	result := req.Amount.Mul(rate)
	text := fmt.Sprintf(conversionFormat,
		req.Amount.StringFixed(2),
		req.Currency.Noun(req.Amount),
		result.StringFixed(2),
		r.today(),
	)
	logger.Dialog.LogAttrs(ctx, slog.LevelInfo, "conversion done",
		slog.String("event", "dialog.convert"),
		slog.String("status", "ok"),
		slog.String("outcome", "ok"),
		slog.Int64("chat_id", ev.ChatID),
		slog.String("currency", string(req.Currency.Code)),
		slog.String("amount", req.Amount.String()),
		slog.String("rate", rate.String()),
	)
	return reply(ev.ChatID, TextWithMainKeyboard, text), nil
}

func (r *Router) enterConverter(ctx context.Context, chatID int64, current state.State) (Reply, error) {
	if err := r.transition(ctx, chatID, current, StateConverter); err != nil {
		return Reply{}, err
	}
	return reply(chatID, TextWithMainKeyboard, converterEnterText), nil
}

func (r *Router) transition(ctx context.Context, chatID int64, from, to state.State) error {
	if err := r.store.SetState(ctx, chatID, to); err != nil {
		return fmt.Errorf("dialog: write state: %w", err)
	}
	if from == to {
		return nil
	}
	metrics.ConverterTransitionsTotal.WithLabelValues(string(to)).Inc()
	logger.Dialog.LogAttrs(ctx, slog.LevelDebug, "state changed",
		slog.String("event", "dialog.transition"),
		slog.Int64("chat_id", chatID),
		slog.String("from_state", string(from)),
		slog.String("to_state", string(to)),
	)
	return nil
}

func (r *Router) rateText(ctx context.Context, cur currency.Currency) string {
	rate, err := r.fetch(ctx, cur)
	if err != nil {
		return fmt.Sprintf(rateFailureFormat, cur.Genitive)
	}
	return fmt.Sprintf(rateFormat, cur.Genitive, r.today(), rate.StringFixed(2))
}

// fetch asks the rate source once and journals a successful quote.
// Failures are logged by the rate source.
func (r *Router) fetch(ctx context.Context, cur currency.Currency) (decimal.Decimal, error) {
	if r.rates == nil {
		return decimal.Zero, fmt.Errorf("dialog: no rate source")
	}
	rate, err := r.rates.Rate(ctx, cur)
	if err != nil {
		return decimal.Zero, err
	}
	r.record(ctx, cur, rate)
	return rate, nil
}

func (r *Router) record(ctx context.Context, cur currency.Currency, rate decimal.Decimal) {
	if r.journal == nil {
		return
	}
	now := r.now()
	q := Quote{Date: now, Code: cur.Code, Rate: rate, FetchedAt: now}
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := r.journal.Record(jctx, q); err != nil {
		logger.Dialog.LogAttrs(ctx, slog.LevelWarn, "quote not journaled",
			slog.String("event", "dialog.journal"),
			slog.String("status", "fail"),
			slog.String("currency", string(cur.Code)),
			slog.String("err", err.Error()),
		)
	}
}

func (r *Router) today() string {
	return r.now().Format(dateLayout)
}

// commandName returns the first word of text without a "@botname" suffix.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 && strings.HasPrefix(cmd, "/") {
		cmd = cmd[:i]
	}
	return cmd
}

// rateCommand maps "/usd" and friends to their currency.
func rateCommand(cmd string) (currency.Currency, bool) {
	if !strings.HasPrefix(cmd, "/") || cmd != strings.ToLower(cmd) {
		return currency.Currency{}, false
	}
	return currency.Lookup(strings.TrimPrefix(cmd, "/"))
}
