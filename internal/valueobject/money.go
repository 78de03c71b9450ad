// Package valueobject holds the immutable value types shared by the
// incentive engine: Money, Percentage, DateRange, Target and SlabRange.
//
// Amounts use decimal.Decimal so currency math never goes through float64.
// Money arithmetic across currencies is a programming error and panics with
// a *CurrencyMismatchError; callers that accept currencies from outside must
// check SameCurrency first.
package valueobject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept on every Money amount.
const MoneyScale = 2

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidCurrency  = errors.New("currency must be a 3-letter code")
)

// CurrencyMismatchError is the panic value raised by cross-currency arithmetic.
type CurrencyMismatchError struct {
	Op    string
	Left  string
	Right string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("%s: cannot %s %s and %s", ErrCurrencyMismatch, e.Op, e.Left, e.Right)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrCurrencyMismatch }

type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney rounds amount to two places and upper-cases the currency.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return Money{}, ErrInvalidCurrency
		}
	}
	return Money{amount: amount.Round(MoneyScale), currency: currency}, nil
}

// MustMoney is NewMoney for literals in code and tests.
func MustMoney(amount string, currency string) Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	m, err := NewMoney(d, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func ZeroMoney(currency string) Money {
	m, err := NewMoney(decimal.Zero, currency)
	if err != nil {
		return Money{amount: decimal.Zero, currency: strings.ToUpper(currency)}
	}
	return m
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

func (m Money) SameCurrency(o Money) bool { return m.currency == o.currency }

func (m Money) mustMatch(op string, o Money) {
	if !m.SameCurrency(o) {
		panic(&CurrencyMismatchError{Op: op, Left: m.currency, Right: o.currency})
	}
}

func (m Money) Add(o Money) Money {
	m.mustMatch("add", o)
	return Money{amount: m.amount.Add(o.amount).Round(MoneyScale), currency: m.currency}
}

func (m Money) Sub(o Money) Money {
	m.mustMatch("subtract", o)
	return Money{amount: m.amount.Sub(o.amount).Round(MoneyScale), currency: m.currency}
}

// Mul scales the amount by factor, rounding half away from zero to cents.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).Round(MoneyScale), currency: m.currency}
}

// Percent returns p percent of m.
func (m Money) Percent(p Percentage) Money {
	return m.Mul(p.Fraction())
}

func (m Money) GreaterThan(o Money) bool {
	m.mustMatch("compare", o)
	return m.amount.GreaterThan(o.amount)
}

func (m Money) LessThan(o Money) bool {
	m.mustMatch("compare", o)
	return m.amount.LessThan(o.amount)
}

func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale) + " " + m.currency
}
