package herd

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY - Monetary value with exact decimal arithmetic
// =============================================================================

// Money is a monetary value. It wraps decimal.Decimal so that installment
// splits and dashboard totals never accumulate floating-point drift.
type Money struct {
	Value decimal.Decimal
}

// MoneyFromString parses a decimal string ("1234.56").
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

// MustMoney parses a decimal string and panics on failure. Test helper.
func MustMoney(s string) Money {
	m, err := MoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(b Money) Money          { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money          { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) MulInt(n int) Money         { return Money{Value: m.Value.Mul(decimal.NewFromInt(int64(n)))} }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) Equal(b Money) bool         { return m.Value.Equal(b.Value) }
func (m Money) Float64() float64           { f, _ := m.Value.Float64(); return f }

// DivRound divides by n, rounded to 2 decimal places (half away from zero).
func (m Money) DivRound(n int) Money {
	return Money{Value: m.Value.DivRound(decimal.NewFromInt(int64(n)), 2)}
}

// String formats with exactly two decimal places.
func (m Money) String() string { return m.Value.StringFixed(2) }
