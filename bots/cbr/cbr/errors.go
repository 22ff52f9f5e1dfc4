package cbr

import (
	"errors"
	"fmt"

	"github.com/m3rciful/cbrbot/bots/cbr/currency"
)

// ErrRateNotFound means the feed had no usable Value for the requested currency.
var ErrRateNotFound = errors.New("cbr: rate not found")

// FetchError reports a failed rate lookup. Op names the failing step:
// request, status, decode, lookup or parse.
type FetchError struct {
	Currency currency.Code
	Op       string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cbr: %s %s: %v", e.Op, e.Currency, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Code is used as err_code in handler logs.
func (e *FetchError) Code() string { return "cbr_" + e.Op }
