// Package router turns a Registry into telebot routes. Every route runs
// behind the recover, logging and reply-counter middleware and logs one
// handler.handled summary per update.
package router

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/cbrbot/core/logger"
	tg "github.com/m3rciful/cbrbot/core/telegram"
	"github.com/m3rciful/cbrbot/core/telegram/callbacks"
	"github.com/m3rciful/cbrbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(middleware.ReplyCounterMiddleware(h)))
}

// CommandRoutes binds every registered command, and each of its aliases,
// to the command handler.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	names := reg.CommandNames()
	var routes []tg.Route
	for _, name := range names {
		_, cmd, _ := reg.LookupCommand(name)
		inner := cmd.Handler
		label := handlerName(name)
		h := wrap(func(c tele.Context) error {
			return run(c, label, inner)
		})
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range cmd.Aliases {
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}
	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(names)),
		slog.Int("callbacks", len(reg.CallbackKeys())),
	)
	return routes
}

// TextRoutes builds the handler for free text. Text is matched against
// command names and aliases, then falls back to the registry fallback and
// finally opts.UnknownText. Conversation state is the handlers' business.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		if reg != nil {
			if name, cmd, ok := reg.LookupCommand(c.Text()); ok {
				return run(c, handlerName(name), cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return run(c, "fallback", fb)
			}
		}
		if opts.UnknownText != nil {
			return run(c, "unknown_text", opts.UnknownText)
		}
		skip(c, "unknown_text")
		return nil
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: wrap(handler)}}
}

// CallbackRoute dispatches inline button presses by key. Every callback is
// answered first so the client stops its progress spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		_ = c.Respond()

		key := callbacks.CallbackKey(c)
		name := "callback." + handlerName(key)
		attrs := []slog.Attr{slog.String("cb_key", key)}
		if h, ok := reg.Callback(key); ok {
			return run(c, name, h, attrs...)
		}

		attrs = append(attrs, slog.String("reason", "not_found"))
		fallback := opts.NotFound
		if fallback == nil {
			fallback = reg.CallbackNotFound()
		}
		if fallback == nil {
			skip(c, name, attrs...)
			return nil
		}
		return run(c, name, fallback, attrs...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrap(handler)}
}

// handlerName turns "/USD rate" into "usd_rate" for logs and metric labels.
func handlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
