// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Conversion from and to decimal text
// goes through shopspring/decimal so no float rounding leaks into totals.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const maxAmountLen = 32

// MaxCents caps a single amount at 100 billion units. Balances and
// category totals are summed in int64, which leaves room for roughly
// 900k transactions at the cap.
const MaxCents int64 = 10_000_000_000_000

var maxCents = decimal.NewFromInt(MaxCents)

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for invalid formats, negative values, or zero.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountLen {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return centsFromDecimal(d)
}

func centsFromDecimal(d decimal.Decimal) (int64, error) {
	c := d.Shift(2).Round(0)
	if !c.IsPositive() || c.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return c.IntPart(), nil
}

// NewMoney builds a Money from a decimal string, see ParseDecimalToCents.
func NewMoney(s string) (Money, error) {
	c, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: c}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Units returns the amount in currency units as a float64 for display and
// chart geometry. Use cents for arithmetic.
func (m Money) Units() float64 {
	return m.Decimal().InexactFloat64()
}

// String formats the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders the amount followed by a currency label, e.g. "12.50 PLN".
func (m Money) Format(currency string) string {
	if currency == "" {
		return m.String()
	}
	return fmt.Sprintf("%s %s", m.String(), currency)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) IsNegative() bool { return m.Cents < 0 }

// MarshalJSON writes the amount as a bare JSON number in currency units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Non-positive
// values are rejected with ErrInvalidAmount.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ErrInvalidAmount
	}
	c, err := centsFromDecimal(d)
	if err != nil {
		return err
	}
	m.Cents = c
	return nil
}
