// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package money implements a fixed-point, four-fractional-digit signed
// decimal scalar with checked (overflow-safe) arithmetic.
//
// Values are stored as a sign bit plus a uint256 magnitude scaled by
// 10,000, so addition and subtraction compose through
// uint256.Int.AddOverflow/SubOverflow the same way checked-arithmetic
// helpers elsewhere in this codebase report overflow as a second return
// value instead of wrapping silently.
package money

import (
	"errors"
	"strings"

	"github.com/holiman/uint256"
)

// scale is the number of representable fractional digits.
const scale = 4

var (
	// ErrOverflow is returned when a checked operation's true result does
	// not fit the representable range.
	ErrOverflow = errors.New("money: overflow")

	// ErrEmpty is returned when parsing an empty or whitespace-only literal.
	ErrEmpty = errors.New("money: empty amount")

	// ErrSyntax is returned for a literal that isn't a plain decimal
	// number (scientific notation, NaN/Inf, stray characters, ...).
	ErrSyntax = errors.New("money: invalid decimal literal")

	// ErrPrecision is returned when a literal carries more than four
	// fractional digits. Excess precision is rejected, never rounded.
	ErrPrecision = errors.New("money: more than four fractional digits")
)

// Money is a signed decimal with exactly four fractional digits.
type Money struct {
	neg bool
	mag uint256.Int
}

// Zero is the additive identity.
func Zero() Money {
	return Money{}
}

// Parse decodes a plain decimal literal (optional sign, digits, optional
// '.' followed by up to four digits) into a Money value. Scientific
// notation, NaN, Inf, and more than four fractional digits are rejected.
func Parse(text string) (Money, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Money{}, ErrEmpty
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return Money{}, ErrSyntax
	}

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return Money{}, ErrSyntax
	}
	if intPart == "" && (!hasDot || fracPart == "") {
		return Money{}, ErrSyntax
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) {
		return Money{}, ErrSyntax
	}
	if hasDot {
		if !isDigits(fracPart) {
			return Money{}, ErrSyntax
		}
		if len(fracPart) > scale {
			return Money{}, ErrPrecision
		}
	}
	for len(fracPart) < scale {
		fracPart += "0"
	}

	digits := strings.TrimLeft(intPart, "0") + fracPart

	var mag uint256.Int
	if err := mag.SetFromDecimal(digits); err != nil {
		return Money{}, ErrSyntax
	}

	m := Money{neg: neg, mag: mag}
	if m.mag.IsZero() {
		m.neg = false
	}
	return m, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsZero reports whether the value is exactly zero.
func (m Money) IsZero() bool { return m.mag.IsZero() }

// IsNegative reports whether the value is strictly less than zero.
func (m Money) IsNegative() bool { return m.neg && !m.mag.IsZero() }

// IsPositive reports whether the value is strictly greater than zero.
func (m Money) IsPositive() bool { return !m.neg && !m.mag.IsZero() }

// Negate returns -m.
func (m Money) Negate() Money {
	if m.mag.IsZero() {
		return m
	}
	return Money{neg: !m.neg, mag: m.mag}
}

// Cmp returns -1, 0, or 1 as m is less than, equal to, or greater than o.
func (m Money) Cmp(o Money) int {
	switch {
	case m.neg == o.neg:
		c := m.mag.Cmp(&o.mag)
		if m.neg {
			return -c
		}
		return c
	case m.mag.IsZero() && o.mag.IsZero():
		return 0
	case m.neg:
		return -1
	default:
		return 1
	}
}

// Equal reports whether m and o represent the same value.
func (m Money) Equal(o Money) bool { return m.Cmp(o) == 0 }

// CheckedAdd returns m+o, or ErrOverflow if the true sum does not fit.
func (m Money) CheckedAdd(o Money) (Money, error) {
	if m.neg == o.neg {
		var sum uint256.Int
		_, overflow := sum.AddOverflow(&m.mag, &o.mag)
		if overflow {
			return Money{}, ErrOverflow
		}
		r := Money{neg: m.neg, mag: sum}
		if r.mag.IsZero() {
			r.neg = false
		}
		return r, nil
	}

	// Opposite signs: subtract the smaller magnitude from the larger;
	// the result takes the sign of the larger operand. This never
	// overflows since both operands already fit in the representable
	// range.
	switch m.mag.Cmp(&o.mag) {
	case 0:
		return Money{}, nil
	case 1:
		var diff uint256.Int
		diff.Sub(&m.mag, &o.mag)
		return Money{neg: m.neg, mag: diff}, nil
	default:
		var diff uint256.Int
		diff.Sub(&o.mag, &m.mag)
		return Money{neg: o.neg, mag: diff}, nil
	}
}

// CheckedSub returns m-o, or ErrOverflow if the true difference does not
// fit.
func (m Money) CheckedSub(o Money) (Money, error) {
	return m.CheckedAdd(o.Negate())
}

// FormatFixed4 renders the canonical form with exactly four fractional
// digits, a leading '-' for negative values, and no thousands separators.
func (m Money) FormatFixed4() string {
	digits := m.mag.Dec()
	for len(digits) <= scale {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-scale]
	fracPart := digits[len(digits)-scale:]

	var b strings.Builder
	if m.neg && !m.mag.IsZero() {
		b.WriteByte('-')
	}
	b.WriteString(intPart)
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}

func (m Money) String() string { return m.FormatFixed4() }
