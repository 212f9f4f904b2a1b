// This file contains parsing and formatting for yen amounts. Amounts are
// whole yen integers; there is no fractional unit and no currency conversion.
package core

import (
	"strconv"
	"strings"
)

// ParseYen converts a user-supplied amount string to whole yen. Grouping
// commas, a leading yen sign and surrounding whitespace are tolerated. A
// negative input is accepted and normalized to its absolute value,
// matching the storage invariant that amounts are always non-negative.
//
// Examples:
//
//	ParseYen("1200")   -> 1200, nil
//	ParseYen("¥1,200") -> 1200, nil
//	ParseYen("-500")   -> 500, nil
//	ParseYen("12.5")   -> 0, ErrInvalidAmount
func ParseYen(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if v < 0 {
		v = -v
	}
	return v, nil
}

// FormatYen renders an amount with a yen sign and thousands separators.
func FormatYen(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}
