package valueobject

import (
	"errors"

	"github.com/shopspring/decimal"
)

type AchievementKind string

const (
	AchievementRevenue       AchievementKind = "REVENUE"
	AchievementUnits         AchievementKind = "UNITS"
	AchievementRetentionRate AchievementKind = "RETENTION_RATE"
	AchievementNewAccounts   AchievementKind = "NEW_ACCOUNTS"
	AchievementMargin        AchievementKind = "MARGIN"
	AchievementScore         AchievementKind = "SCORE"
)

var (
	ErrNonPositiveTarget = errors.New("target value must be greater than zero")
	ErrInvalidThreshold  = errors.New("minimum threshold must be between zero and the target value")
)

type Target struct {
	value     decimal.Decimal
	threshold decimal.Decimal
	kind      AchievementKind
	unit      string
}

func NewTarget(value, threshold decimal.Decimal, kind AchievementKind, unit string) (Target, error) {
	if !value.IsPositive() {
		return Target{}, ErrNonPositiveTarget
	}
	if threshold.IsNegative() || threshold.GreaterThan(value) {
		return Target{}, ErrInvalidThreshold
	}
	return Target{value: value, threshold: threshold, kind: kind, unit: unit}, nil
}

// RawTarget builds a Target without invariant checks. Plans loaded from
// storage use it so PlanValidationService can report the problems instead.
func RawTarget(value, threshold decimal.Decimal, kind AchievementKind, unit string) Target {
	return Target{value: value, threshold: threshold, kind: kind, unit: unit}
}

func (t Target) Value() decimal.Decimal            { return t.value }
func (t Target) MinimumThreshold() decimal.Decimal { return t.threshold }
func (t Target) Kind() AchievementKind             { return t.kind }
func (t Target) Unit() string                      { return t.unit }

func (t Target) MeetsMinimumThreshold(actual decimal.Decimal) bool {
	return actual.GreaterThanOrEqual(t.threshold)
}

// Achievement is actual/target*100. A zero target counts as fully achieved.
func (t Target) Achievement(actual decimal.Decimal) Percentage {
	return PercentageOf(actual, t.value)
}

// ThresholdPercentage expresses the minimum threshold as a share of the target.
func (t Target) ThresholdPercentage() Percentage {
	if t.value.IsZero() {
		return ZeroPercentage()
	}
	return PercentageOf(t.threshold, t.value)
}
