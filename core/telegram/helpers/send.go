package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/cbrbot/core/logger"
	"github.com/m3rciful/cbrbot/core/metrics"
	"github.com/m3rciful/cbrbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// sendAsync queues run on the dispatcher. Without a dispatcher, or when the
// queue cannot take the job, run executes inline and its error is returned.
func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return runInline(run)
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return runInline(run)
		}
		return err
	}
	return nil
}

func runInline(run func() error) error {
	if err := run(); err != nil {
		metrics.MessagesSentTotal.WithLabelValues("fail").Inc()
		return err
	}
	metrics.MessagesSentTotal.WithLabelValues("ok").Inc()
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
// A nil markup sends the text without a keyboard.
func SendText(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ReplyMarkup: markup, DisableWebPagePreview: true}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}
