package valueobject

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PercentageScale is the precision kept on achievement and prorata figures.
const PercentageScale = 4

var ErrNegativePercentage = errors.New("percentage cannot be negative")

var hundred = decimal.NewFromInt(100)

// Percentage is a non-negative percent value. Values above 100 are valid
// and represent over-achievement.
type Percentage struct {
	value decimal.Decimal
}

func NewPercentage(v decimal.Decimal) (Percentage, error) {
	if v.IsNegative() {
		return Percentage{}, ErrNegativePercentage
	}
	return Percentage{value: v.Round(PercentageScale)}, nil
}

func MustPercentage(v string) Percentage {
	p, err := NewPercentage(decimal.RequireFromString(v))
	if err != nil {
		panic(err)
	}
	return p
}

// PercentageOf returns part/whole*100. A zero whole yields 100%.
func PercentageOf(part, whole decimal.Decimal) Percentage {
	if whole.IsZero() {
		return FullPercentage()
	}
	v := part.Div(whole).Mul(hundred)
	if v.IsNegative() {
		v = decimal.Zero
	}
	return Percentage{value: v.Round(PercentageScale)}
}

func ZeroPercentage() Percentage { return Percentage{value: decimal.Zero} }
func FullPercentage() Percentage { return Percentage{value: hundred} }

func (p Percentage) Value() decimal.Decimal { return p.value }

// Fraction converts the percentage to a multiplier (50% -> 0.5).
func (p Percentage) Fraction() decimal.Decimal { return p.value.Div(hundred) }

func (p Percentage) IsZero() bool                     { return p.value.IsZero() }
func (p Percentage) IsFull() bool                     { return p.value.Equal(hundred) }
func (p Percentage) LessThan(o Percentage) bool       { return p.value.LessThan(o.value) }
func (p Percentage) GreaterThan(o Percentage) bool    { return p.value.GreaterThan(o.value) }
func (p Percentage) Equal(o Percentage) bool          { return p.value.Equal(o.value) }
func (p Percentage) GreaterOrEqual(o Percentage) bool { return p.value.GreaterThanOrEqual(o.value) }

// Cap returns the smaller of p and limit.
func (p Percentage) Cap(limit Percentage) Percentage {
	if p.value.GreaterThan(limit.value) {
		return limit
	}
	return p
}

func (p Percentage) String() string { return p.value.StringFixed(2) + "%" }

func (p Percentage) MarshalJSON() ([]byte, error) {
	return p.value.MarshalJSON()
}
