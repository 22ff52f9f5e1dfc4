package app

import (
	"context"
	"log/slog"

	"github.com/m3rciful/cbrbot/bots/cbr/dialog"
	"github.com/m3rciful/cbrbot/core/logger"
	"github.com/m3rciful/cbrbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/cbrbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// handle feeds every routed update into the dialog router and sends its reply.
// Only state store failures are returned; delivery failures are logged.
func (a *App) handle(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	ev := dialog.Event{ChatID: chat.ID, Name: tghelpers.DisplayName(c)}
	if c.Callback() != nil {
		ev.Callback = callbacks.CallbackKey(c)
	} else {
		ev.Text = c.Text()
	}

	rep, err := a.dialog.Handle(ctx, ev)
	if err != nil {
		return err
	}
	if rep.Empty() {
		return nil
	}
	a.deliver(ctx, c, rep)
	return nil
}

// rateLimited tells a user who writes too fast to slow down.
func (a *App) rateLimited(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	a.deliver(tghelpers.BuildContext(c), c, dialog.Reply{
		ChatID: chat.ID,
		Intent: dialog.PlainText,
		Text:   dialog.RateLimitedText,
	})
	return nil
}

func (a *App) deliver(ctx context.Context, c tele.Context, rep dialog.Reply) {
	if err := tghelpers.SendText(c, rep.Text, Markup(rep.Intent)); err != nil {
		logDeliveryError(ctx, &DeliveryError{ChatID: rep.ChatID, Err: err}, rep.Intent.String())
	}
}

// deliveryFailed is the dispatcher hook for sends that failed after queueing.
func deliveryFailed(ctx context.Context, action string, err error) {
	logDeliveryError(ctx, &DeliveryError{ChatID: logger.ChatIDFrom(ctx), Err: err}, action)
}

func logDeliveryError(ctx context.Context, err *DeliveryError, what string) {
	logger.TG.LogAttrs(ctx, slog.LevelError, "reply not delivered",
		slog.String("event", "tg.deliver"),
		slog.String("status", "fail"),
		slog.Int64("chat_id", err.ChatID),
		slog.String("what", what),
		slog.String("err", err.Error()),
		slog.String("err_code", err.Code()),
	)
}
