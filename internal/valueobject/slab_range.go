package valueobject

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSlabBounds = errors.New("slab from must be on or below slab to")
	ErrNegativePayout    = errors.New("slab payout rate cannot be negative")
)

// SlabRange is one payout tier: achievement in [From, To] pays Rate (a
// fraction of base salary) or FixedAmount when one is set.
type SlabRange struct {
	From        decimal.Decimal
	To          decimal.Decimal
	Rate        decimal.Decimal
	FixedAmount *Money
	Order       int
}

func NewSlabRange(from, to, rate decimal.Decimal, fixed *Money, order int) (SlabRange, error) {
	if from.GreaterThan(to) {
		return SlabRange{}, ErrInvalidSlabBounds
	}
	if rate.IsNegative() {
		return SlabRange{}, ErrNegativePayout
	}
	return SlabRange{From: from, To: to, Rate: rate, FixedAmount: fixed, Order: order}, nil
}

// Contains is inclusive on both ends.
func (s SlabRange) Contains(achievement Percentage) bool {
	v := achievement.Value()
	return v.GreaterThanOrEqual(s.From) && v.LessThanOrEqual(s.To)
}

// Overlaps reports a shared interior. Slabs that only touch at a boundary
// (one's To equals the other's From) are contiguous, not overlapping.
func (s SlabRange) Overlaps(o SlabRange) bool {
	return s.From.LessThan(o.To) && o.From.LessThan(s.To)
}

// HasFixedAmount is true when a positive fixed amount overrides the rate.
func (s SlabRange) HasFixedAmount() bool {
	return s.FixedAmount != nil && s.FixedAmount.IsPositive()
}

// HasPayout is true when the slab pays something.
func (s SlabRange) HasPayout() bool {
	return s.Rate.IsPositive() || s.HasFixedAmount()
}

// Payout applies the slab to base salary. A positive fixed amount wins over the rate.
func (s SlabRange) Payout(baseSalary Money) Money {
	if s.HasFixedAmount() {
		return *s.FixedAmount
	}
	return baseSalary.Mul(s.Rate)
}
