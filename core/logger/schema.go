package logger

import (
	"slices"
	"strings"
)

// Statuses are lower-cased as given; outcomes outside knownOutcomes are dropped.
var (
	levelNames = map[string]string{
		"debug":   "DEBUG",
		"info":    "INFO",
		"warn":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
	}
	knownOutcomes = []string{"ok", "fail", "cancelled", "rate_limited"}
)

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	return outcome, slices.Contains(knownOutcomes, outcome)
}

// defaultKeyOrder puts the correlation fields first, then the rate and
// conversion details, then transport and error fields.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler", "cb_key",
	"state", "from_state", "to_state",
	"currency", "amount", "rate", "quote_date",
	"outcome", "duration_ms", "messages", "kb",
	"payload", "lang", "username",
	"mode", "listen", "public_url", "url", "http_code",
	"db", "host", "port", "backend",
	"err", "err_code", "cause", "attempts", "backoff_ms",
}
