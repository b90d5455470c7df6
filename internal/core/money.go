// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from ledger cells
// and formatting them for display.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	digits       = regexp.MustCompile(`^[0-9]+$`)
	commaGrouped = regexp.MustCompile(`^[0-9]{1,3}(,[0-9]{3})+$`)
	dotGrouped   = regexp.MustCompile(`^[0-9]{1,3}(\.[0-9]{3})+$`)

	// Raw spreadsheet numbers may come back in exponent form.
	exponent = regexp.MustCompile(`^[0-9]*\.?[0-9]+[eE][-+]?[0-9]+$`)
)

// ParseAmount converts a ledger amount cell to an exact decimal.
//
// A leading currency sign and surrounding spaces are ignored. When both a dot
// and a comma appear, the last one is the decimal separator and the other must
// group digits in threes. A lone dot is decimal. A lone comma groups thousands
// only when three digits follow it and the integer part is not 0; otherwise it
// is decimal. Repeated separators must form valid thousands groups. Anything
// else is ErrInvalidAmount. Negative values are rejected; the movement type
// carries the sign.
//
// Examples:
//   ParseAmount("1000")       -> 1000
//   ParseAmount("$1,250.50")  -> 1250.50
//   ParseAmount("1.250,50")   -> 1250.50
//   ParseAmount("1.250.000")  -> 1250000
//   ParseAmount("12,5")       -> 12.5
//   ParseAmount("0,125")      -> 0.125
//   ParseAmount("-3")         -> ErrNegativeAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	sign := ""
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign, s = "-", rest
	}
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	normalized, ok := s, exponent.MatchString(s)
	if !ok {
		normalized, ok = normalizeAmount(s)
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(sign + normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// normalizeAmount rewrites an unsigned amount with "." as the only separator.
func normalizeAmount(s string) (string, bool) {
	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")

	var intPart, frac string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep, grouped := lastDot, commaGrouped
		if lastComma > lastDot {
			sep, grouped = lastComma, dotGrouped
		}
		intPart, frac = s[:sep], s[sep+1:]
		if !digits.MatchString(intPart) {
			if !grouped.MatchString(intPart) {
				return "", false
			}
			intPart = strings.NewReplacer(",", "", ".", "").Replace(intPart)
		}
	case lastComma >= 0:
		switch {
		case strings.Count(s, ",") > 1:
			if !commaGrouped.MatchString(s) {
				return "", false
			}
			intPart = strings.ReplaceAll(s, ",", "")
		case commaGrouped.MatchString(s) && s[:lastComma] != "0":
			intPart = s[:lastComma] + s[lastComma+1:]
		default:
			intPart, frac = s[:lastComma], s[lastComma+1:]
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			if !dotGrouped.MatchString(s) {
				return "", false
			}
			intPart = strings.ReplaceAll(s, ".", "")
		} else {
			intPart, frac = s[:lastDot], s[lastDot+1:]
		}
	default:
		intPart = s
	}

	if intPart == "" {
		intPart = "0"
	}
	if !digits.MatchString(intPart) {
		return "", false
	}
	if frac == "" {
		return intPart, true
	}
	if !digits.MatchString(frac) {
		return "", false
	}
	return intPart + "." + frac, true
}

// FormatAmount renders a whole-unit amount with thousands separators, e.g. "$1,250"
// or "-$300".
func FormatAmount(d decimal.Decimal) string {
	v := d.Round(0).IntPart()
	if v < 0 {
		return "-$" + humanize.Comma(-v)
	}
	return "$" + humanize.Comma(v)
}
