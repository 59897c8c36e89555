package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a user-entered or stored decimal. Thousands separators and
// a leading currency sign are tolerated; blank input is zero.
//
// Examples:
//
//	ParseAmount("1,250.5") -> 1250.5
//	ParseAmount("$300")    -> 300
//	ParseAmount("")        -> 0
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// LenientAmount coerces unparseable cells to zero, the way rows typed by hand
// into the sheet are read back.
func LenientAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatAmount renders a rounded amount with thousands separators, e.g. "$12,345".
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().Round(0).StringFixed(0)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg && s != "0" {
		return "-$" + b.String()
	}
	return "$" + b.String()
}

// FormatNumber renders a decimal without trailing zeros for form inputs and exports.
func FormatNumber(d decimal.Decimal) string {
	return d.String()
}
