// Package money provides currency-safe arithmetic for Vietnamese đồng
// amounts. VND has no minor units, so amounts are whole đồng wrapped in
// go-money for safe addition and comparison, with shopspring/decimal
// for VAT math that must not lose precision.
package money

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// VND is the ISO-4217 code for the Vietnamese đồng.
const VND = "VND"

// Amount is a VND monetary value. go-money knows VND carries no
// decimal places, so the wrapped amount is whole đồng.
type Amount struct {
	m *money.Money
}

// New creates an Amount from whole đồng.
func New(dong int64) *Amount {
	return &Amount{m: money.New(dong, VND)}
}

// FromDecimal converts a decimal đồng value, rounding to whole đồng.
func FromDecimal(d decimal.Decimal) *Amount {
	return New(d.Round(0).IntPart())
}

// Parse reads a Vietnamese-formatted amount, where '.' separates
// thousands and ',' marks decimals ("1.234.567" or "1.234,5").
func Parse(s string) (*Amount, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	for _, sym := range []string{"₫", "đ", "VND", "VNĐ"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// Zero returns a zero đồng amount.
func Zero() *Amount {
	return New(0)
}

// Dong returns the amount in whole đồng.
func (a *Amount) Dong() int64 {
	if a == nil || a.m == nil {
		return 0
	}
	return a.m.Amount()
}

// IsZero reports whether the amount is zero.
func (a *Amount) IsZero() bool {
	return a == nil || a.m == nil || a.m.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (a *Amount) IsNegative() bool {
	return a != nil && a.m != nil && a.m.IsNegative()
}

// Add sums two amounts.
func (a *Amount) Add(other *Amount) *Amount {
	if a == nil || a.m == nil {
		return other
	}
	if other == nil || other.m == nil {
		return a
	}
	// Same currency always; go-money only errors on currency mismatch.
	sum, _ := a.m.Add(other.m)
	return &Amount{m: sum}
}

// Sub subtracts other from a.
func (a *Amount) Sub(other *Amount) *Amount {
	if other == nil || other.m == nil {
		return a
	}
	if a == nil || a.m == nil {
		return &Amount{m: other.m.Negative()}
	}
	diff, _ := a.m.Subtract(other.m)
	return &Amount{m: diff}
}

// Equals reports whether both amounts are equal.
func (a *Amount) Equals(other *Amount) bool {
	return a.Dong() == other.Dong()
}

// ToDecimal converts to decimal for ratio math.
func (a *Amount) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(a.Dong())
}

// String renders the bare đồng value, e.g. "44545".
func (a *Amount) String() string {
	return fmt.Sprintf("%d", a.Dong())
}

// Display renders the amount for the web UI, e.g. "44.545 ₫".
func (a *Amount) Display() string {
	if a == nil || a.m == nil {
		return "0 ₫"
	}
	return groupThousands(a.m.Amount()) + " ₫"
}

// VAT computes the tax on a base amount at an integer percentage rate,
// rounded to whole đồng.
func (a *Amount) VAT(ratePercent int) *Amount {
	if a == nil || a.m == nil || ratePercent == 0 {
		return Zero()
	}
	tax := a.ToDecimal().
		Mul(decimal.NewFromInt(int64(ratePercent))).
		Div(decimal.NewFromInt(100))
	return FromDecimal(tax)
}

// WithVAT returns the gross amount at the given rate.
func (a *Amount) WithVAT(ratePercent int) *Amount {
	return a.Add(a.VAT(ratePercent))
}

// BaseFromGross extracts the pre-tax base from a tax-inclusive amount.
func (a *Amount) BaseFromGross(ratePercent int) *Amount {
	if a == nil || a.m == nil || ratePercent == 0 {
		return a
	}
	divisor := decimal.NewFromInt(100 + int64(ratePercent)).
		Div(decimal.NewFromInt(100))
	return FromDecimal(a.ToDecimal().Div(divisor))
}

// Sum totals a list of amounts.
func Sum(amounts ...*Amount) *Amount {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// groupThousands inserts Vietnamese '.' thousand separators.
func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ".")
	if neg {
		out = "-" + out
	}
	return out
}
