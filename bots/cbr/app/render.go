package app

import (
	"github.com/m3rciful/cbrbot/bots/cbr/dialog"
	"github.com/m3rciful/cbrbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Button labels shown under replies.
const (
	converterButtonText     = "Converter"
	converterModeButtonText = `Режим "Конвертации валюты"`
	converterHelpButtonText = `Help "Конвертация валюты"`
	helpButtonText          = "Help"
)

// Markup maps a reply intent to the keyboard sent with it. PlainText gets none.
func Markup(intent dialog.Intent) *tele.ReplyMarkup {
	switch intent {
	case dialog.TextWithMainKeyboard:
		return keyboard.Reply(
			[]string{"/usd", "/eur", "/cad"},
			[]string{"/gbp", "/chf", "/cny"},
			[]string{dialog.CommandConverter},
		)
	case dialog.TextWithConverterHelpButton:
		return keyboard.Inline(
			keyboard.Button{Text: converterButtonText, Unique: dialog.CallbackConverter},
		)
	case dialog.TextWithModeButtons:
		return keyboard.Inline(
			keyboard.Button{Text: converterModeButtonText, Unique: dialog.CallbackConverter},
			keyboard.Button{Text: converterHelpButtonText, Unique: dialog.CallbackConverterHelp},
			keyboard.Button{Text: helpButtonText, Unique: dialog.CallbackHelp},
		)
	default:
		return nil
	}
}
