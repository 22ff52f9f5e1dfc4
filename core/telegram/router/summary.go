package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/cbrbot/core/logger"
	"github.com/m3rciful/cbrbot/core/metrics"
	tghelpers "github.com/m3rciful/cbrbot/core/telegram/helpers"
	"github.com/m3rciful/cbrbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// run calls h under the handler name and logs the summary line.
func run(c tele.Context, name string, h tele.HandlerFunc, attrs ...slog.Attr) error {
	tghelpers.WithHandler(c, name)
	start := time.Now()
	err := h(c)
	status := "ok"
	if err != nil {
		status = "fail"
	}
	summarize(c, name, status, time.Since(start), err, attrs...)
	return err
}

// skip logs an update that no handler took.
func skip(c tele.Context, name string, attrs ...slog.Attr) {
	summarize(c, name, "skip", 0, nil, attrs...)
}

func summarize(c tele.Context, name, status string, took time.Duration, err error, attrs ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, name)
	if status != "skip" {
		metrics.ObserveHandler(name, err != nil, took)
	}
	msgs, kb := middleware.GetCounters(c)
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	line := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", took),
	}
	if err != nil {
		line = append(line,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
			slog.String("cause", name),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", append(line, attrs...)...)
}

// errorCode prefers a Code() method anywhere in the chain, then the
// dynamic type name of err.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
