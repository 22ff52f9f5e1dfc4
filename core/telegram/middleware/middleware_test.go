package middleware

import (
	"testing"
	"time"

	"github.com/m3rciful/cbrbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func TestRateLimitDropsBurstFromSameUser(t *testing.T) {
	now := time.Unix(1700000000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(teletest.NewMessage(1, 7, "/usd"))
	_ = h(teletest.NewMessage(1, 7, "/eur"))
	_ = h(teletest.NewMessage(2, 8, "/eur"))
	now = now.Add(2 * time.Second)
	_ = h(teletest.NewMessage(1, 7, "/cad"))

	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if limited != 1 {
		t.Fatalf("limited = %d, want 1", limited)
	}
}

func TestRateLimitExcludesCallbacks(t *testing.T) {
	now := time.Unix(1700000000, 0)
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Minute,
		Exclude:  map[string]struct{}{"callback": {}},
		Now:      func() time.Time { return now },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })
	for i := 0; i < 3; i++ {
		_ = h(teletest.NewCallback(1, 7, "\fHELP"))
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(teletest.NewMessage(1, 7, "x")); err == nil {
		t.Fatalf("expected error from recovered panic")
	}
}

func TestReplyCounterTracksKeyboard(t *testing.T) {
	c := teletest.NewMessage(1, 7, "/usd")
	h := ReplyCounterMiddleware(func(c tele.Context) error {
		if err := c.Send("plain"); err != nil {
			return err
		}
		return c.Send("with kb", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	msgs, kb := GetCounters(c)
	if msgs != 2 || !kb {
		t.Fatalf("counters = %d, %v; want 2, true", msgs, kb)
	}
}
