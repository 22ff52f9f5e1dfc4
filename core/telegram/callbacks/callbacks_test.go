package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		data    string
		key     string
		payload string
	}{
		{"\fCONVERTER_BUTTON", "CONVERTER_BUTTON", ""},
		{"CONVERTER_BUTTON ", "CONVERTER_BUTTON", ""},
		{"\fHELP|page2", "HELP", "page2"},
		{"\fHELP|a|b", "HELP", "a|b"},
		{"", "", ""},
	}
	for _, tc := range cases {
		key, payload := Parse(tc.data)
		if key != tc.key || payload != tc.payload {
			t.Fatalf("Parse(%q) = %q, %q; want %q, %q", tc.data, key, payload, tc.key, tc.payload)
		}
	}
}

func TestKeyPrefersUnique(t *testing.T) {
	if got := Key(&tele.Callback{Unique: "HELP", Data: "\fOTHER"}); got != "HELP" {
		t.Fatalf("Key = %q, want HELP", got)
	}
	if got := Key(&tele.Callback{Data: "\fHELP_CONVERTER_COMMAND"}); got != "HELP_CONVERTER_COMMAND" {
		t.Fatalf("Key from data = %q", got)
	}
	if got := Key(nil); got != "" {
		t.Fatalf("Key(nil) = %q, want empty", got)
	}
}
