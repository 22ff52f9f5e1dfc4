// Package currency holds the six supported currencies, their CBR identifiers
// and the Russian noun forms used when printing amounts.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Code is an ISO 4217 code in upper case.
type Code string

const (
	USD Code = "USD"
	EUR Code = "EUR"
	CAD Code = "CAD"
	GBP Code = "GBP"
	CHF Code = "CHF"
	CNY Code = "CNY"
)

// Form selects a noun inflection by numeric agreement.
type Form int

const (
	// One is the nominative singular: 1, 21, 31 ...
	One Form = iota
	// Few is the genitive singular: 2-4, 22-24 ...
	Few
	// Many is the genitive plural: 0, 5-20, 25-30 ...
	Many
)

func (f Form) String() string {
	switch f {
	case One:
		return "one"
	case Few:
		return "few"
	default:
		return "many"
	}
}

// Forms lists a noun in each agreement form.
type Forms struct {
	One  string
	Few  string
	Many string
}

// Of returns the noun for f.
func (n Forms) Of(f Form) string {
	switch f {
	case One:
		return n.One
	case Few:
		return n.Few
	default:
		return n.Many
	}
}

// Currency describes one supported currency.
type Currency struct {
	Code Code
	// CBRID is the Valute ID in the CBR daily feed.
	CBRID string
	// Genitive is used in "курс <Genitive>".
	Genitive string
	Nouns    Forms
	// Name is the nominative name used in help texts.
	Name string
}

var table = []Currency{
	{
		Code: USD, CBRID: "R01235", Genitive: "доллара США", Name: "доллар США",
		Nouns: Forms{One: "доллар США", Few: "доллара США", Many: "долларов США"},
	},
	{
		Code: EUR, CBRID: "R01239", Genitive: "евро", Name: "евро",
		Nouns: Forms{One: "евро", Few: "евро", Many: "евро"},
	},
	{
		Code: CAD, CBRID: "R01350", Genitive: "канадского доллара", Name: "канадский доллар",
		Nouns: Forms{One: "канадский доллар", Few: "канадских доллара", Many: "канадских долларов"},
	},
	{
		Code: GBP, CBRID: "R01035", Genitive: "фунта стерлингов", Name: "фунт стерлингов",
		Nouns: Forms{One: "фунт стерлингов", Few: "фунта стерлингов", Many: "фунтов стерлингов"},
	},
	{
		Code: CHF, CBRID: "R01775", Genitive: "швейцарского франка", Name: "швейцарский франк",
		Nouns: Forms{One: "швейцарский франк", Few: "швейцарских франка", Many: "швейцарских франков"},
	},
	{
		Code: CNY, CBRID: "R01375", Genitive: "китайского юаня", Name: "китайский юань",
		Nouns: Forms{One: "китайский юань", Few: "китайских юаня", Many: "китайских юаней"},
	},
}

var byCode = func() map[Code]Currency {
	m := make(map[Code]Currency, len(table))
	for _, c := range table {
		m[c.Code] = c
	}
	return m
}()

// All returns the supported currencies in menu order.
func All() []Currency {
	return append([]Currency(nil), table...)
}

// Lookup finds a currency by code, ignoring case and surrounding spaces.
func Lookup(code string) (Currency, bool) {
	c, ok := byCode[Code(strings.ToUpper(strings.TrimSpace(code)))]
	return c, ok
}

// Lower returns the code as typed in commands, e.g. "usd".
func (c Code) Lower() string {
	return strings.ToLower(string(c))
}

var (
	one    = decimal.NewFromInt(1)
	two    = decimal.NewFromInt(2)
	three  = decimal.NewFromInt(3)
	four   = decimal.NewFromInt(4)
	five   = decimal.NewFromInt(5)
	ten    = decimal.NewFromInt(10)
	twenty = decimal.NewFromInt(20)
)

// Pluralize picks the noun form for amount. The rules are checked in order:
// 5..20 is Many; 1 or a remainder of 1 mod 10 is One; 2 or a remainder of
// 2, 3 or 4 is Few; anything else is Many. Fractions and negatives go through
// the same checks; the remainder keeps the sign, so 1.5 and -1 are both Many.
func Pluralize(amount decimal.Decimal) Form {
	if amount.GreaterThanOrEqual(five) && amount.LessThanOrEqual(twenty) {
		return Many
	}
	rem := amount.Mod(ten)
	if amount.Equal(one) || rem.Equal(one) {
		return One
	}
	if amount.Equal(two) || rem.Equal(two) || rem.Equal(three) || rem.Equal(four) {
		return Few
	}
	return Many
}

// Noun returns the noun for amount units of c.
func (c Currency) Noun(amount decimal.Decimal) string {
	return c.Nouns.Of(Pluralize(amount))
}
