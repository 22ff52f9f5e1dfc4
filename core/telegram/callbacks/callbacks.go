// Package callbacks reads the key of an inline button press.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse splits callback data into key and payload. Telebot buttons arrive
// as "\f<key>|<payload>"; buttons built elsewhere carry the bare key,
// sometimes with trailing spaces.
func Parse(data string) (key, payload string) {
	key, payload, _ = strings.Cut(strings.TrimPrefix(data, "\f"), "|")
	return strings.TrimSpace(key), strings.TrimSpace(payload)
}

// Key returns the button key of cb: cb.Unique when telebot filled it in,
// otherwise the key parsed from cb.Data.
func Key(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	if u := strings.TrimSpace(cb.Unique); u != "" {
		return u
	}
	key, _ := Parse(cb.Data)
	return key
}

// CallbackKey is Key for the callback of c.
func CallbackKey(c tele.Context) string {
	return Key(c.Callback())
}
