// Package core holds the payout domain: canonical bookings, calendar months,
// amount and date cleaning, month-overlap allocation, aggregation and
// filtering.
//
// This file contains the lenient amount parsing used on export cells and the
// localized money formatting used for running totals.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ParseAmount turns a spreadsheet cell into a decimal amount.
//
// Strings are stripped of currency symbols, percent signs, thousands
// separators and anything that is not a digit, a dot or a minus before being
// parsed. Anything unparseable yields zero.
//
// Examples:
//
//	ParseAmount("$1,234.56") -> 1234.56
//	ParseAmount("N/A")       -> 0
//	ParseAmount(12.5)        -> 12.5
func ParseAmount(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case float32:
		return decimal.NewFromFloat32(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case string:
		return parseAmountString(x)
	default:
		return decimal.Zero
	}
}

func parseAmountString(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseInt reads a whole number out of a cell, truncating any fraction.
func ParseInt(v any) int {
	return int(ParseAmount(v).IntPart())
}

var symbols = map[string]string{
	"CNY": "¥",
	"JPY": "¥",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"HKD": "HK$",
	"TWD": "NT$",
	"KRW": "₩",
}

// FormatMoney renders amount with the grouping rules of locale and the symbol
// of the ISO currency code. Unknown codes are printed as a suffix; an empty
// code prints the bare number.
func FormatMoney(amount decimal.Decimal, code, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	code = strings.ToUpper(strings.TrimSpace(code))
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	f, _ := amount.Round(int32(scale)).Float64()
	num := p.Sprintf(fmt.Sprintf("%%.%df", scale), f)

	if code == "" {
		return num
	}
	if sym, ok := symbols[code]; ok {
		if strings.HasPrefix(num, "-") {
			return "-" + sym + strings.TrimPrefix(num, "-")
		}
		return sym + num
	}
	return num + " " + code
}
