package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// logLine writes one event through a fresh handler and returns the output line.
func logLine(t *testing.T, ctx context.Context, format logFormat, component, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 16)
	h := newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: aw, format: format})
	LogEvent(ctx, slog.New(h).With("component", component), slog.LevelInfo, event, attrs...)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func assertOrdered(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		if idx == -1 || idx < pos {
			t.Fatalf("%s out of order or missing in %s", p, line)
		}
		pos = idx
	}
}

func TestKVLineStartsWithCorrelationFields(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(context.Background(), "rid-123"), 42, 7, 9)
	line := logLine(t, ctx, formatKV, "dialog", "dialog.transition",
		slog.String("cause", "unit"),
		slog.String("status", "ok"),
	)
	if !strings.HasPrefix(line, "ts=") {
		t.Fatalf("line = %s", line)
	}
	assertOrdered(t, line, " level=INFO", " component=dialog", " event=dialog.transition",
		" status=ok", " rid=rid-123", " update_id=42", " user_id=7", " chat_id=9", " cause=unit")
}

func TestJSONLineKeepsFullRID(t *testing.T) {
	ctx := WithRID(context.Background(), "12:34:56")
	line := logLine(t, ctx, formatJSON, "rates.cbr", "rate.fetch", slog.String("err", "boom"))
	assertOrdered(t, line, `{"ts":`, `"level":"INFO"`, `"component":"rates.cbr"`,
		`"rid":"`+CompactRID("12:34:56")+`"`, `"rid_full":"12:34:56"`, `"ts_unix_nano"`, `"err":"boom"`)
}

func TestKVLineCompactsRIDWithoutFull(t *testing.T) {
	line := logLine(t, WithRID(context.Background(), "123:456:789"), formatKV, "app", "rid.test")
	if !strings.Contains(line, "rid="+CompactRID("123:456:789")) || strings.Contains(line, "rid_full=") {
		t.Fatalf("line = %s", line)
	}
}

func TestRecordNormalization(t *testing.T) {
	line := logLine(t, context.Background(), formatKV, "rates.cbr", "",
		slog.String("rate", "90.5"),
		slog.String("currency", "usd"),
		slog.String("status", "FAIL"),
		slog.String("outcome", "bogus"),
		slog.String("empty", " "),
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Group("req", slog.Int("attempt", 2)),
		slog.String("payload", "usd 10"),
	)
	assertOrdered(t, line, "event=unknown", "status=fail", "currency=usd", "rate=90.5", "duration_ms=2", `payload="usd 10"`, "req.attempt=2")
	if strings.Contains(line, "outcome=") || strings.Contains(line, "empty=") {
		t.Fatalf("unexpected fields in %s", line)
	}
}

func TestCallerFieldsWinOverContext(t *testing.T) {
	ctx := WithHandler(WithUpdateMeta(context.Background(), 1, 2, 3), "usd")
	line := logLine(t, ctx, formatKV, "tg", "handler.handled", slog.Int64("chat_id", 99))
	if !strings.Contains(line, "chat_id=99") || !strings.Contains(line, "handler=usd") {
		t.Fatalf("line = %s", line)
	}
}

func TestDurationKey(t *testing.T) {
	cases := map[string]string{
		"duration":       "duration_ms",
		"fetch_duration": "fetch_duration_ms",
		"elapsed_ms":     "elapsed_ms",
		"took":           "took_ms",
	}
	for in, want := range cases {
		if got := durationKey(in); got != want {
			t.Fatalf("durationKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandlerWithoutWriter(t *testing.T) {
	h := newStructuredHandler(handlerConfig{})
	if err := h.Handle(context.Background(), slog.Record{}); err != errNoWriter {
		t.Fatalf("err = %v", err)
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug enabled at default level")
	}
}
