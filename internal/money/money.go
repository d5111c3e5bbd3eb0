// Package money implements the fixed-point USD representation used by every
// financial module. Amounts are signed integers scaled by 1e5 (five implied
// decimal digits); percentages travel as basis points (percent x 100).
// Monetary arithmetic never touches floating point.
package money

import (
	"errors"
	"fmt"
	"strings"
)

// Scale is the implied-decimal factor: stored value = dollars * Scale.
const Scale = 100_000

// BasisPointsDenom converts basis points back to a plain ratio.
const BasisPointsDenom = 10_000

// Amount is a USD value scaled by Scale.
type Amount int64

// BasisPoints is a percentage scaled by 100 (10% == 1000 bp).
type BasisPoints int64

var (
	// ErrInvalidAmount marks negative or unparseable monetary input.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrInvalidPercent marks a percentage outside [0,100].
	ErrInvalidPercent = errors.New("money: percent out of range")
)

// FromUSD builds an Amount from whole dollars.
func FromUSD(dollars int64) Amount {
	return Amount(dollars * Scale)
}

// FromCents builds an Amount from dollar cents.
func FromCents(cents int64) Amount {
	return Amount(cents * (Scale / 100))
}

// PercentToBasisPoints validates a whole-number percentage and scales it.
func PercentToBasisPoints(percent int64) (BasisPoints, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPercent, percent)
	}
	return BasisPoints(percent * 100), nil
}

// WholeUSD truncates to whole dollars. Commission tiers are defined in whole
// dollars, so tier matching goes through this.
func (a Amount) WholeUSD() int64 {
	return int64(a) / Scale
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Neg returns the additive inverse.
func (a Amount) Neg() Amount { return -a }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// ApplyBasisPoints computes a * bp / 10000 with round-half-even on the
// division. Half-even keeps per-model sums and consolidated totals from
// drifting apart by a unit per record.
func (a Amount) ApplyBasisPoints(bp BasisPoints) Amount {
	return Amount(divRoundHalfEven(int64(a)*int64(bp), BasisPointsDenom))
}

// divRoundHalfEven divides num by den (den > 0) rounding halves to the
// nearest even quotient. Works for negative numerators.
func divRoundHalfEven(num, den int64) int64 {
	q := num / den
	r := num % den
	if r == 0 {
		return q
	}
	neg := r < 0
	if neg {
		r = -r
	}
	double := r * 2
	switch {
	case double < den:
		return q
	case double > den:
		if neg {
			return q - 1
		}
		return q + 1
	default: // exactly half: round to even
		if q%2 == 0 {
			return q
		}
		if neg {
			return q - 1
		}
		return q + 1
	}
}

// Parse reads a decimal string such as "2500.00" or "-3240.75" into an
// Amount. More than five fractional digits is rejected rather than silently
// truncated.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(fracPart) > 5 {
		return 0, fmt.Errorf("%w: %q has more than 5 decimal digits", ErrInvalidAmount, s)
	}
	var value int64
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		value = value*10 + int64(r-'0')
	}
	frac := int64(0)
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		frac = frac*10 + int64(r-'0')
	}
	for i := len(fracPart); i < 5; i++ {
		frac *= 10
	}
	value = value*Scale + frac
	if neg {
		value = -value
	}
	return Amount(value), nil
}

// String renders the amount as a plain decimal with two fractional digits
// when the sub-cent part is zero, full five digits otherwise.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / Scale
	frac := v % Scale
	if frac%(Scale/100) == 0 {
		return fmt.Sprintf("%s%d.%02d", sign, whole, frac/(Scale/100))
	}
	return fmt.Sprintf("%s%d.%05d", sign, whole, frac)
}

// Float64 is for display layers only (SVG charts, formatted reports). Never
// feed the result back into monetary arithmetic.
func (a Amount) Float64() float64 {
	return float64(a) / float64(Scale)
}
