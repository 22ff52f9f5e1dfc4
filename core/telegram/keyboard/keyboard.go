// Package keyboard builds the reply and inline keyboards attached to replies.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button. Unique is the callback key; Data is an
// optional payload telebot appends after a '|'.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Reply builds a resized reply keyboard, one row per slice of labels.
func Reply(rows ...[]string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{ResizeKeyboard: true}
	kb := make([]tele.Row, len(rows))
	for i, labels := range rows {
		btns := make([]tele.Btn, len(labels))
		for j, label := range labels {
			btns[j] = m.Text(label)
		}
		kb[i] = m.Row(btns...)
	}
	m.Reply(kb...)
	return m
}

// Inline builds an inline keyboard with every button on its own row.
func Inline(buttons ...Button) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	kb := make([]tele.Row, len(buttons))
	for i, b := range buttons {
		var data []string
		if b.Data != "" {
			data = []string{b.Data}
		}
		kb[i] = m.Row(m.Data(b.Text, b.Unique, data...))
	}
	m.Inline(kb...)
	return m
}
