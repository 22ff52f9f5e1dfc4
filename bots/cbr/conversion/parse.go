// Package conversion parses converter-mode input such as "usd 10.5".
package conversion

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/cbrbot/bots/cbr/currency"
)

// Kind tags a parsed Request.
type Kind int

const (
	// Invalid means the text is neither "end" nor "<code> <amount>".
	Invalid Kind = iota
	// Terminate asks to leave converter mode.
	Terminate
	// Convert asks to convert Amount units of Currency into rubles.
	Convert
)

func (k Kind) String() string {
	switch k {
	case Terminate:
		return "terminate"
	case Convert:
		return "convert"
	default:
		return "invalid"
	}
}

// TerminateWord leaves converter mode. It is matched exactly.
const TerminateWord = "end"

// maxAmountLen bounds the amount text so a single message cannot make the
// decimal math and the reply arbitrarily large.
const maxAmountLen = 32

// Request is the result of Parse. Currency and Amount are set only for Convert.
type Request struct {
	Kind     Kind
	Currency currency.Currency
	Amount   decimal.Decimal
}

// Parse reads one converter-mode message. The first three characters are the
// currency code, the fourth is a separator that is skipped, and the rest is
// the amount with a dot as decimal separator. Exponent notation and amounts
// longer than maxAmountLen are rejected. Parse never fails: anything it
// cannot read is reported as Invalid.
func Parse(raw string) Request {
	if raw == TerminateWord {
		return Request{Kind: Terminate}
	}

	runes := []rune(raw)
	if len(runes) < 4 {
		return Request{Kind: Invalid}
	}
	code := strings.ToLower(string(runes[:3]))
	amountText := strings.TrimSpace(string(runes[4:]))
	if len(amountText) > maxAmountLen || strings.ContainsAny(amountText, "eE") {
		return Request{Kind: Invalid}
	}

	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return Request{Kind: Invalid}
	}
	cur, ok := currency.Lookup(code)
	if !ok {
		return Request{Kind: Invalid}
	}
	return Request{Kind: Convert, Currency: cur, Amount: amount}
}
