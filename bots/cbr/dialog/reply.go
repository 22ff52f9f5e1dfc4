package dialog

// Intent says which keyboard goes with a reply.
type Intent int

const (
	// PlainText has no keyboard.
	PlainText Intent = iota
	// TextWithMainKeyboard attaches the currency shortcuts and the converter entry.
	TextWithMainKeyboard
	// TextWithConverterHelpButton attaches one inline "Converter" button.
	TextWithConverterHelpButton
	// TextWithModeButtons attaches the converter, converter help and help buttons.
	TextWithModeButtons
)

func (i Intent) String() string {
	switch i {
	case TextWithMainKeyboard:
		return "main_keyboard"
	case TextWithConverterHelpButton:
		return "converter_button"
	case TextWithModeButtons:
		return "mode_buttons"
	default:
		return "plain"
	}
}

// Reply is what the router wants sent back to a chat.
type Reply struct {
	ChatID int64
	Intent Intent
	Text   string
}

// Empty reports whether there is nothing to send.
func (r Reply) Empty() bool { return r.Text == "" }

func reply(chatID int64, intent Intent, text string) Reply {
	return Reply{ChatID: chatID, Intent: intent, Text: text}
}
