package keyboard

import "testing"

func TestReplyLayout(t *testing.T) {
	m := Reply([]string{"/usd", "/eur"}, []string{"/converter"})
	if !m.ResizeKeyboard {
		t.Fatalf("expected resized keyboard")
	}
	if len(m.ReplyKeyboard) != 2 || len(m.ReplyKeyboard[0]) != 2 || m.ReplyKeyboard[1][0].Text != "/converter" {
		t.Fatalf("unexpected layout: %+v", m.ReplyKeyboard)
	}
}

func TestInlineOnePerRow(t *testing.T) {
	m := Inline(
		Button{Text: "A", Unique: "CONVERTER_BUTTON"},
		Button{Text: "B", Unique: "HELP", Data: "x"},
	)
	if len(m.InlineKeyboard) != 2 || len(m.InlineKeyboard[0]) != 1 {
		t.Fatalf("unexpected layout: %+v", m.InlineKeyboard)
	}
	if b := m.InlineKeyboard[0][0]; b.Unique != "CONVERTER_BUTTON" || b.Data != "" || b.Text != "A" {
		t.Fatalf("unexpected first button: %+v", b)
	}
	if b := m.InlineKeyboard[1][0]; b.Unique != "HELP" || b.Data != "x" {
		t.Fatalf("unexpected second button: %+v", b)
	}
}
