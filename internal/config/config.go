package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalTier maps an amount ceiling to an approval level. A nil
// MaxAmount marks the open-ended top tier.
type ApprovalTier struct {
	Level     int
	Name      string
	MaxAmount *decimal.Decimal
	SLA       time.Duration
}

// IncentiveConfig carries the business defaults used by the domain services.
type IncentiveConfig struct {
	DefaultMinimumTenureDays int

	ApprovalTiers     []ApprovalTier
	MaxApprovalLevels int
	// ExpirationGrace delays expiry past an approval's SLA. Zero expires
	// approvals as soon as expires_at has passed.
	ExpirationGrace time.Duration

	// Provisional plan-type rates, used when a plan has no PayoutRate of its own.
	FixedBonusRate       decimal.Decimal
	SalaryPercentageRate decimal.Decimal
	CommissionRate       decimal.Decimal
	MBOTargetBonusRate   decimal.Decimal
	MBOAchievementCap    decimal.Decimal

	SlabGapTolerance        decimal.Decimal
	MinimumPlanPeriodDays   int
	DifficultThresholdRatio decimal.Decimal
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func DefaultIncentiveConfig() IncentiveConfig {
	return IncentiveConfig{
		DefaultMinimumTenureDays: 90,
		ApprovalTiers: []ApprovalTier{
			{Level: 1, Name: "Manager", MaxAmount: amount(50000), SLA: 72 * time.Hour},
			{Level: 2, Name: "Director", MaxAmount: amount(200000), SLA: 48 * time.Hour},
			{Level: 3, Name: "VP", MaxAmount: nil, SLA: 24 * time.Hour},
		},
		MaxApprovalLevels:       5,
		ExpirationGrace:         0,
		FixedBonusRate:          decimal.RequireFromString("0.10"),
		SalaryPercentageRate:    decimal.RequireFromString("0.10"),
		CommissionRate:          decimal.RequireFromString("0.05"),
		MBOTargetBonusRate:      decimal.RequireFromString("0.15"),
		MBOAchievementCap:       decimal.NewFromInt(150),
		SlabGapTolerance:        decimal.RequireFromString("0.01"),
		MinimumPlanPeriodDays:   30,
		DifficultThresholdRatio: decimal.RequireFromString("0.80"),
	}
}

// LoadIncentiveConfig starts from the defaults and applies INCENTIVE_* overrides.
func LoadIncentiveConfig() (IncentiveConfig, error) {
	cfg := DefaultIncentiveConfig()

	if err := envInt("INCENTIVE_DEFAULT_TENURE_DAYS", &cfg.DefaultMinimumTenureDays); err != nil {
		return cfg, err
	}
	if err := envInt("INCENTIVE_MAX_APPROVAL_LEVELS", &cfg.MaxApprovalLevels); err != nil {
		return cfg, err
	}
	if err := envInt("INCENTIVE_MIN_PLAN_PERIOD_DAYS", &cfg.MinimumPlanPeriodDays); err != nil {
		return cfg, err
	}
	if err := envDuration("INCENTIVE_EXPIRATION_GRACE", &cfg.ExpirationGrace); err != nil {
		return cfg, err
	}

	rates := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"INCENTIVE_FIXED_BONUS_RATE", &cfg.FixedBonusRate},
		{"INCENTIVE_SALARY_PERCENTAGE_RATE", &cfg.SalaryPercentageRate},
		{"INCENTIVE_COMMISSION_RATE", &cfg.CommissionRate},
		{"INCENTIVE_MBO_TARGET_BONUS_RATE", &cfg.MBOTargetBonusRate},
		{"INCENTIVE_MBO_ACHIEVEMENT_CAP", &cfg.MBOAchievementCap},
		{"INCENTIVE_SLAB_GAP_TOLERANCE", &cfg.SlabGapTolerance},
		{"INCENTIVE_DIFFICULT_THRESHOLD_RATIO", &cfg.DifficultThresholdRatio},
	}
	for _, r := range rates {
		if err := envDecimal(r.key, r.dst); err != nil {
			return cfg, err
		}
	}

	for i := range cfg.ApprovalTiers {
		tier := &cfg.ApprovalTiers[i]
		if tier.MaxAmount != nil {
			if err := envDecimal(fmt.Sprintf("INCENTIVE_APPROVAL_L%d_MAX", tier.Level), tier.MaxAmount); err != nil {
				return cfg, err
			}
		}
		if err := envDuration(fmt.Sprintf("INCENTIVE_APPROVAL_L%d_SLA", tier.Level), &tier.SLA); err != nil {
			return cfg, err
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks that tiers are ordered and end with an open tier.
func (c IncentiveConfig) Validate() error {
	if len(c.ApprovalTiers) == 0 {
		return fmt.Errorf("at least one approval tier is required")
	}
	var prev *decimal.Decimal
	for i, tier := range c.ApprovalTiers {
		if tier.Level != i+1 {
			return fmt.Errorf("approval tier %d has level %d, expected %d", i, tier.Level, i+1)
		}
		if tier.SLA <= 0 {
			return fmt.Errorf("approval tier %d has non-positive SLA", tier.Level)
		}
		last := i == len(c.ApprovalTiers)-1
		if tier.MaxAmount == nil && !last {
			return fmt.Errorf("only the last approval tier may be open-ended")
		}
		if tier.MaxAmount != nil {
			if last {
				return fmt.Errorf("the last approval tier must be open-ended")
			}
			if prev != nil && !tier.MaxAmount.GreaterThan(*prev) {
				return fmt.Errorf("approval tier %d ceiling must exceed tier %d", tier.Level, tier.Level-1)
			}
			prev = tier.MaxAmount
		}
	}
	if c.DefaultMinimumTenureDays < 0 {
		return fmt.Errorf("default minimum tenure cannot be negative")
	}
	return nil
}

// TopLevel is the highest configured approval tier.
func (c IncentiveConfig) TopLevel() int {
	return len(c.ApprovalTiers)
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envDecimal(key string, dst *decimal.Decimal) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
