package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

var errNoWriter = errors.New("logger: writer not initialized")

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders every record as one flat line: nested groups
// become dotted keys and the keys listed in keyOrder come first.
type structuredHandler struct {
	cfg    handlerConfig
	enc    encoder
	prefix string
	attrs  []slog.Attr
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg, enc: newEncoder(cfg.format, cfg.keyOrder)}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errNoWriter
	}
	rec := make(record, 16)
	ts := r.Time.UTC()
	rec["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	rec["level"] = r.Level.String()
	if h.cfg.format == formatJSON {
		rec["ts_unix_nano"] = ts.UnixNano()
	}
	for _, a := range h.attrs {
		rec.add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.add(h.prefix, a)
		return true
	})
	rec.fillFromContext(ctx)
	rec.compactRID(h.cfg.format == formatJSON)
	rec.setDefault("event", r.Message, "unknown")
	rec.setDefault("component", "app")
	rec.normalize()

	line, err := h.enc.encode(rec)
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.prefix == "" {
		clone.prefix = name
	} else {
		clone.prefix += "." + name
	}
	return &clone
}

// record holds the flattened fields of one log line.
type record map[string]any

func (rec record) add(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" {
		if key == "" {
			key = prefix
		} else {
			key = prefix + "." + key
		}
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			rec.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := scalar(key, v); ok {
		rec[k] = val
	}
}

// scalar converts v into a JSON friendly value. Durations are logged as
// whole milliseconds under a key ending in _ms.
func scalar(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return "", nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, strings.TrimSpace(x.String()), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// durationKey maps duration attributes onto millisecond keys: duration -> duration_ms,
// fetch_duration -> fetch_duration_ms, took -> took_ms.
func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func (rec record) str(key string) string {
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// setDefault stores the first non-empty candidate when key is missing or empty.
func (rec record) setDefault(key string, candidates ...string) {
	if rec.str(key) != "" {
		return
	}
	for _, c := range candidates {
		if c != "" {
			rec[key] = c
			return
		}
	}
}

// fillFromContext adds request metadata for keys the caller did not set.
func (rec record) fillFromContext(ctx context.Context) {
	m := metaFrom(ctx)
	for key, val := range map[string]any{
		"rid":       m.rid,
		"handler":   m.handler,
		"update_id": m.updateID,
		"user_id":   m.userID,
		"chat_id":   m.chatID,
	} {
		if _, set := rec[key]; set || isZero(val) {
			continue
		}
		rec[key] = val
	}
}

// compactRID shortens rid; JSON lines also keep the raw value as rid_full.
func (rec record) compactRID(keepFull bool) {
	rid := rec.str("rid")
	compact := CompactRID(rid)
	if compact == "" || compact == rid {
		return
	}
	if _, set := rec["rid_full"]; keepFull && !set {
		rec["rid_full"] = rid
	}
	rec["rid"] = compact
}

// normalize maps enumerated fields onto their canonical spelling, drops
// unknown outcomes and removes empty values.
func (rec record) normalize() {
	rec["level"] = normalizeLevel(rec.str("level"))
	if s := rec.str("status"); s != "" {
		rec["status"] = normalizeStatus(s)
	}
	if o := rec.str("outcome"); o != "" {
		if canonical, ok := normalizeOutcome(o); ok {
			rec["outcome"] = canonical
		} else {
			delete(rec, "outcome")
		}
	}
	for k, v := range rec {
		if s, ok := v.(string); ok && s == "" {
			delete(rec, k)
		}
	}
}

func isZero(v any) bool {
	switch x := v.(type) {
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	}
	return v == nil
}
