// Package core provides money parsing and handling utilities.
//
// This file contains the free-form amount parser used for expense amounts and
// the monthly limit, plus the display formatter for amounts.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Multiplier suffixes, checked in this order.
var amountSuffixes = []struct {
	token string
	mult  int64
}{
	{"m", 1_000_000},
	{"k", 1_000},
	{"tr", 1_000_000},
}

var (
	separatorStripper = strings.NewReplacer(".", "", ",", "")
	maxAmount         = decimal.NewFromInt(1<<63 - 1)
)

// ParseAmount converts a free-form amount string to an integer amount in the
// smallest currency unit.
//
// Whitespace is ignored and matching is case-insensitive. Dots and commas are
// thousands separators and are dropped. A multiplier suffix may appear anywhere
// in the input: "m" and "tr" multiply by 1,000,000 and "k" by 1,000. Only the
// first occurrence of the matched token is removed. The remaining text is read
// up to the first character that cannot continue a number.
//
// ParseAmount never fails: empty, unparseable or out of range input yields 0.
//
// Examples:
//
//	ParseAmount("1.500k") -> 1500000
//	ParseAmount("2tr")    -> 2000000
//	ParseAmount("50 K")   -> 50000
//	ParseAmount("abc")    -> 0
func ParseAmount(input string) int64 {
	s := strings.ToLower(strings.Join(strings.Fields(input), ""))
	if s == "" {
		return 0
	}

	mult := int64(1)
	for _, suffix := range amountSuffixes {
		if strings.Contains(s, suffix.token) {
			mult = suffix.mult
			s = strings.Replace(s, suffix.token, "", 1)
			break
		}
	}

	s = separatorStripper.Replace(s)
	num := leadingNumber(s)
	if num == "" {
		return 0
	}

	d, err := decimal.NewFromString(num)
	if err != nil || d.Exponent() > 18 || d.Exponent() < -18 {
		return 0
	}
	d = d.Mul(decimal.NewFromInt(mult)).Round(0)
	if d.Abs().GreaterThan(maxAmount) {
		return 0
	}
	return d.IntPart()
}

// leadingNumber returns the longest prefix of s that reads as a number:
// optional sign, digits and an optional exponent. Separators are already
// stripped, so there is no fraction part. It returns "" when no digit leads.
func leadingNumber(s string) string {
	i := 0
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == start {
		return ""
	}
	end := i
	if i < len(s) && s[i] == 'e' {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}
	num := s[start:end]
	if neg {
		num = "-" + num
	}
	return num
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// FormatAmount renders an amount with dot thousands separators followed by
// the dong sign, e.g. 1500000 -> "1.500.000 ₫".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + " ₫"
}
