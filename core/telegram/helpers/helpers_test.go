package helpers

import (
	"errors"
	"testing"

	"github.com/m3rciful/cbrbot/core/logger"
	"github.com/m3rciful/cbrbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func TestDisplayNameFallbacks(t *testing.T) {
	c := teletest.NewMessage(1, 7, "/start")
	c.Upd.Message.Chat.Username = "ivan"
	if got := DisplayName(c); got != "ivan" {
		t.Fatalf("DisplayName = %q, want chat username", got)
	}
	c.Upd.Message.Chat.Username = ""
	c.Upd.Message.Sender.Username = ""
	if got := DisplayName(c); got != "Test" {
		t.Fatalf("DisplayName = %q, want first name", got)
	}
}

func TestSendTextInlineWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	c := teletest.NewMessage(1, 7, "/usd")
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	if err := SendText(c, "hello", markup); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	sent := c.SentMessages()
	if len(sent) != 1 || sent[0].Text != "hello" || sent[0].Options.ReplyMarkup != markup {
		t.Fatalf("unexpected sent: %+v", sent)
	}

	c.SendErr = errors.New("blocked")
	if err := SendText(c, "again", nil); err == nil {
		t.Fatalf("expected inline send error")
	}
}

func TestBuildContextCarriesChat(t *testing.T) {
	c := teletest.NewMessage(42, 7, "x")
	ctx := BuildContext(c)
	if logger.ChatIDFrom(ctx) != 42 || logger.UserIDFrom(ctx) != 7 {
		t.Fatalf("context meta missing")
	}
	if ctx2 := BuildContext(c); ctx2 != ctx {
		t.Fatalf("expected cached context")
	}
}

func TestNewUpdateContextReplacesStoredContext(t *testing.T) {
	c := teletest.NewMessage(42, 7, "x")
	first := BuildContext(c)
	rid := logger.RIDFrom(first)
	if rid == "" {
		t.Fatalf("rid missing")
	}
	fresh := NewUpdateContext(c)
	if fresh == first {
		t.Fatalf("expected a new context")
	}
	if logger.RIDFrom(fresh) != rid {
		t.Fatalf("rid changed within one update")
	}
	if got, _ := ContextFrom(c); got != fresh {
		t.Fatalf("fresh context not stored")
	}
}

func TestWithHandlerTagsOnce(t *testing.T) {
	c := teletest.NewMessage(1, 1, "/usd")
	ctx := WithHandler(c, "usd")
	if logger.HandlerFrom(ctx) != "usd" {
		t.Fatalf("handler = %q", logger.HandlerFrom(ctx))
	}
	if again := WithHandler(c, "usd"); again != ctx {
		t.Fatalf("handler retagged")
	}
	if WithHandler(c, "") != ctx {
		t.Fatalf("empty handler replaced context")
	}
}
