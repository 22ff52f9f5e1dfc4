package router

import (
	"errors"
	"fmt"
	"testing"

	tg "github.com/m3rciful/cbrbot/core/telegram"
	"github.com/m3rciful/cbrbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func TestCallbackRouteDispatchesByKey(t *testing.T) {
	reg := tg.NewRegistry()
	var got string
	if err := reg.RegisterCallback("CONVERTER_BUTTON", func(tele.Context) error {
		got = "converter"
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	route := CallbackRoute(reg, CallbackOptions{})

	c := teletest.NewCallback(1, 7, "CONVERTER_BUTTON ")
	if err := route.Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got != "converter" {
		t.Fatalf("callback not dispatched")
	}
	if c.Responded() != 1 {
		t.Fatalf("callback answered %d times, want 1", c.Responded())
	}
}

func TestCallbackRouteUnknownKeyUsesFallback(t *testing.T) {
	reg := tg.NewRegistry()
	called := false
	route := CallbackRoute(reg, CallbackOptions{NotFound: func(tele.Context) error {
		called = true
		return nil
	}})
	if err := route.Handler(teletest.NewCallback(1, 7, "\fSOMETHING_ELSE")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !called {
		t.Fatalf("fallback not called")
	}
}

func TestTextRoutesMatchCommandsThenFallback(t *testing.T) {
	reg := tg.NewRegistry()
	var got []string
	_ = reg.RegisterCommand("/help", tg.Command{
		Handler:     func(c tele.Context) error { got = append(got, "help:"+c.Text()); return nil },
		Description: "help",
	})
	reg.SetTextFallback(func(c tele.Context) error { got = append(got, "fallback:"+c.Text()); return nil })
	routes := TextRoutes(reg, TextOptions{})
	if len(routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(routes))
	}

	_ = routes[0].Handler(teletest.NewMessage(1, 7, "help"))
	_ = routes[0].Handler(teletest.NewMessage(1, 7, "usd 10"))

	if len(got) != 2 || got[0] != "help:help" || got[1] != "fallback:usd 10" {
		t.Fatalf("dispatched %v", got)
	}
}

func TestCommandRoutesBindAliases(t *testing.T) {
	reg := tg.NewRegistry()
	calls := 0
	_ = reg.RegisterCommand("/usd", tg.Command{
		Handler:     func(tele.Context) error { calls++; return nil },
		Description: "USD rate",
		Aliases:     []string{"dollar"},
	})
	routes := CommandRoutes(reg)
	if len(routes) != 2 {
		t.Fatalf("routes = %d, want 2", len(routes))
	}
	if routes[1].Endpoint != "/dollar" {
		t.Fatalf("alias endpoint = %v", routes[1].Endpoint)
	}

	_ = routes[0].Handler(teletest.NewMessage(1, 7, "/usd"))
	_ = routes[1].Handler(teletest.NewMessage(2, 8, "/dollar"))
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "rate unavailable" }
func (codedErr) Code() string  { return "cbr fetch" }

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{codedErr{}, "CBR_FETCH"},
		{fmt.Errorf("wrapped: %w", codedErr{}), "CBR_FETCH"},
		{errors.New("x"), "ERRORSTRING"},
	}
	for _, tc := range cases {
		if got := errorCode(tc.err); got != tc.want {
			t.Fatalf("errorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestHandlerName(t *testing.T) {
	for in, want := range map[string]string{"/USD": "usd", " ": "unknown", "HELP CONVERTER": "help_converter"} {
		if got := handlerName(in); got != want {
			t.Fatalf("handlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUnknownTextIsSkipped(t *testing.T) {
	routes := TextRoutes(tg.NewRegistry(), TextOptions{})
	c := teletest.NewMessage(1, 1, "hello")
	if err := routes[0].Handler(c); err != nil || len(c.SentMessages()) != 0 {
		t.Fatalf("err = %v sent = %d", err, len(c.SentMessages()))
	}
}
