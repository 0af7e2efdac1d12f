package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyScale is the number of fractional digits kept for every amount.
const moneyScale = 2

// Money represents a monetary amount rounded to two decimal places
// with banker's rounding (HALF_EVEN).
// Immutable value object - all operations return new instances.
type Money struct {
	amount decimal.Decimal
}

// ZeroMoney is the zero amount.
var ZeroMoney = Money{amount: decimal.Zero}

func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount.RoundBank(moneyScale)}
}

// ParseMoney parses a decimal string such as "50.00".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return NewMoney(d), nil
}

// MustParseMoney parses s, panicking if it is not a decimal.
// Use only for trusted input (e.g., constants in tests).
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) IsZero() bool            { return m.amount.IsZero() }

func (m Money) IsGreaterThanZero() bool {
	return m.amount.GreaterThan(decimal.Zero)
}

func (m Money) IsGreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

func (m Money) Add(other Money) Money {
	return NewMoney(m.amount.Add(other.amount))
}

func (m Money) Subtract(other Money) Money {
	return NewMoney(m.amount.Sub(other.amount))
}

func (m Money) Multiply(factor int) Money {
	return NewMoney(m.amount.Mul(decimal.NewFromInt(int64(factor))))
}

func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// String formats the amount with exactly two decimals, e.g. "200.00".
func (m Money) String() string {
	return m.amount.StringFixed(moneyScale)
}
