package valueobject_test

import (
	"testing"
	"time"

	"go-incentive/internal/valueobject"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	t.Run("rounds to two places", func(t *testing.T) {
		m, err := valueobject.NewMoney(decimal.RequireFromString("10.005"), "usd")

		assert.NoError(t, err)
		assert.Equal(t, "10.01 USD", m.String())
	})

	t.Run("rejects bad currency", func(t *testing.T) {
		_, err := valueobject.NewMoney(decimal.NewFromInt(1), "US")
		assert.ErrorIs(t, err, valueobject.ErrInvalidCurrency)

		_, err = valueobject.NewMoney(decimal.NewFromInt(1), "U1D")
		assert.ErrorIs(t, err, valueobject.ErrInvalidCurrency)
	})

	t.Run("same currency arithmetic", func(t *testing.T) {
		a := valueobject.MustMoney("100.50", "IDR")
		b := valueobject.MustMoney("0.50", "IDR")

		assert.True(t, a.Add(b).Equal(valueobject.MustMoney("101", "IDR")))
		assert.True(t, a.Sub(b).Equal(valueobject.MustMoney("100", "IDR")))
		assert.True(t, a.GreaterThan(b))
		assert.True(t, b.Min(a).Equal(b))
		assert.True(t, b.Max(a).Equal(a))
	})

	t.Run("cross currency panics", func(t *testing.T) {
		a := valueobject.MustMoney("1", "USD")
		b := valueobject.MustMoney("1", "EUR")

		assert.PanicsWithError(t, "currency mismatch: cannot add USD and EUR", func() {
			a.Add(b)
		})
		assert.Panics(t, func() { a.LessThan(b) })
		assert.False(t, a.Equal(b))
	})

	t.Run("percent of", func(t *testing.T) {
		salary := valueobject.MustMoney("10000", "USD")

		assert.True(t, salary.Percent(valueobject.MustPercentage("12.5")).Equal(valueobject.MustMoney("1250", "USD")))
	})
}

func TestPercentage(t *testing.T) {
	_, err := valueobject.NewPercentage(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, valueobject.ErrNegativePercentage)

	over := valueobject.MustPercentage("180")
	assert.True(t, over.GreaterThan(valueobject.FullPercentage()))
	assert.True(t, over.Cap(valueobject.MustPercentage("150")).Equal(valueobject.MustPercentage("150")))
	assert.Equal(t, "1.8", over.Fraction().String())

	assert.True(t, valueobject.PercentageOf(decimal.Zero, decimal.Zero).IsFull())
	assert.True(t, valueobject.PercentageOf(decimal.NewFromInt(5), decimal.Zero).IsFull())
	assert.Equal(t, "33.3333", valueobject.PercentageOf(decimal.NewFromInt(1), decimal.NewFromInt(3)).Value().String())
}

func TestDateRange(t *testing.T) {
	t.Run("total days is inclusive", func(t *testing.T) {
		r := valueobject.MustDateRange("2026-01-01", "2026-01-30")
		assert.Equal(t, 30, r.TotalDays())

		single := valueobject.MustDateRange("2026-01-01", "2026-01-01")
		assert.Equal(t, 1, single.TotalDays())
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		_, err := valueobject.ParseDateRange("2026-02-01", "2026-01-01")
		assert.ErrorIs(t, err, valueobject.ErrInvalidDateRange)
	})

	t.Run("truncates times", func(t *testing.T) {
		r, err := valueobject.NewDateRange(
			time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 2, 1, 0, 0, 0, time.UTC),
		)
		assert.NoError(t, err)
		assert.Equal(t, 2, r.TotalDays())
		assert.True(t, r.Contains(time.Date(2026, 1, 2, 18, 0, 0, 0, time.UTC)))
	})

	t.Run("overlap and containment", func(t *testing.T) {
		q1 := valueobject.MustDateRange("2026-01-01", "2026-03-31")
		feb := valueobject.MustDateRange("2026-02-01", "2026-02-28")
		q2 := valueobject.MustDateRange("2026-04-01", "2026-06-30")
		edge := valueobject.MustDateRange("2026-03-31", "2026-04-10")

		assert.True(t, q1.ContainsRange(feb))
		assert.False(t, feb.ContainsRange(q1))
		assert.False(t, q1.Overlaps(q2))
		assert.True(t, q1.Overlaps(edge))

		in, ok := q1.Intersect(edge)
		assert.True(t, ok)
		assert.Equal(t, 1, in.TotalDays())
	})

	t.Run("overlap percentage", func(t *testing.T) {
		period := valueobject.MustDateRange("2026-01-01", "2026-01-30")
		second := valueobject.MustDateRange("2026-01-16", "2026-02-28")

		assert.Equal(t, "50", period.OverlapPercentage(second).Value().String())
		assert.True(t, period.OverlapPercentage(valueobject.MustDateRange("2026-03-01", "2026-03-02")).IsZero())
	})
}

func TestTarget(t *testing.T) {
	_, err := valueobject.NewTarget(decimal.Zero, decimal.Zero, valueobject.AchievementRevenue, "")
	assert.ErrorIs(t, err, valueobject.ErrNonPositiveTarget)

	_, err = valueobject.NewTarget(decimal.NewFromInt(100), decimal.NewFromInt(101), valueobject.AchievementRevenue, "")
	assert.ErrorIs(t, err, valueobject.ErrInvalidThreshold)

	target, err := valueobject.NewTarget(decimal.NewFromInt(1000), decimal.NewFromInt(600), valueobject.AchievementUnits, "units")
	assert.NoError(t, err)
	assert.True(t, target.MeetsMinimumThreshold(decimal.NewFromInt(600)))
	assert.False(t, target.MeetsMinimumThreshold(decimal.NewFromInt(599)))
	assert.Equal(t, "125", target.Achievement(decimal.NewFromInt(1250)).Value().String())
	assert.Equal(t, "60", target.ThresholdPercentage().Value().String())
}

func TestSlabRange(t *testing.T) {
	d := decimal.RequireFromString

	_, err := valueobject.NewSlabRange(d("100"), d("80"), d("0.1"), nil, 1)
	assert.ErrorIs(t, err, valueobject.ErrInvalidSlabBounds)

	_, err = valueobject.NewSlabRange(d("0"), d("80"), d("-0.1"), nil, 1)
	assert.ErrorIs(t, err, valueobject.ErrNegativePayout)

	low, _ := valueobject.NewSlabRange(d("80"), d("100"), d("0.10"), nil, 1)
	high, _ := valueobject.NewSlabRange(d("100"), d("120"), d("0.20"), nil, 2)

	assert.True(t, low.Contains(valueobject.MustPercentage("100")))
	assert.True(t, high.Contains(valueobject.MustPercentage("100")))
	assert.False(t, low.Overlaps(high))

	wide, _ := valueobject.NewSlabRange(d("90"), d("110"), d("0.15"), nil, 3)
	assert.True(t, wide.Overlaps(low))

	salary := valueobject.MustMoney("5000", "USD")
	assert.True(t, high.Payout(salary).Equal(valueobject.MustMoney("1000", "USD")))

	fixed := valueobject.MustMoney("750", "USD")
	withFixed, _ := valueobject.NewSlabRange(d("100"), d("120"), d("0.20"), &fixed, 2)
	assert.True(t, withFixed.Payout(salary).Equal(fixed))
	assert.True(t, withFixed.HasPayout())

	empty, _ := valueobject.NewSlabRange(d("0"), d("10"), d("0"), nil, 4)
	assert.False(t, empty.HasPayout())
}
