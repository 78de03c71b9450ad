package plan

import (
	"sort"
	"time"

	"go-incentive/internal/valueobject"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PlanType string

const (
	TypeFixed              PlanType = "FIXED"
	TypePercentageOfSalary PlanType = "PERCENTAGE_OF_SALARY"
	TypeSlabBased          PlanType = "SLAB_BASED"
	TypeCommission         PlanType = "COMMISSION"
	TypePoolBased          PlanType = "POOL_BASED"
	TypeHybrid             PlanType = "HYBRID"
	TypeMBO                PlanType = "MBO"
	TypeSpotBonus          PlanType = "SPOT_BONUS"
)

type PaymentFrequency string

const (
	FrequencyMonthly    PaymentFrequency = "MONTHLY"
	FrequencyQuarterly  PaymentFrequency = "QUARTERLY"
	FrequencyHalfYearly PaymentFrequency = "HALF_YEARLY"
	FrequencyAnnual     PaymentFrequency = "ANNUAL"
	FrequencyOneTime    PaymentFrequency = "ONE_TIME"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

type Plan struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Code             string           `gorm:"type:varchar(50);not null;uniqueIndex:uq_incentive_plan_code"`
	Name             string           `gorm:"type:varchar(150);not null"`
	Description      string           `gorm:"type:text"`
	PlanType         PlanType         `gorm:"type:varchar(30);not null"`
	PaymentFrequency PaymentFrequency `gorm:"type:varchar(20);not null"`
	EffectiveFrom    time.Time        `gorm:"type:date;not null"`
	EffectiveTo      time.Time        `gorm:"type:date;not null"`

	TargetValue      decimal.Decimal             `gorm:"type:numeric(18,4);not null"`
	MinimumThreshold decimal.Decimal             `gorm:"type:numeric(18,4);not null;default:0"`
	AchievementKind  valueobject.AchievementKind `gorm:"type:varchar(30);not null"`
	TargetUnit       string                      `gorm:"type:varchar(30)"`

	Currency      string           `gorm:"type:char(3);not null"`
	MaximumPayout *decimal.Decimal `gorm:"type:numeric(18,2)"`
	MinimumPayout *decimal.Decimal `gorm:"type:numeric(18,2)"`
	// PayoutRate overrides the configured provisional rate for the plan type.
	PayoutRate *decimal.Decimal `gorm:"type:numeric(9,6)"`

	RequiresApproval  bool `gorm:"not null;default:true"`
	ApprovalLevels    int  `gorm:"not null;default:1"`
	MinimumTenureDays *int

	Status      Status    `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	ActivatedAt *time.Time

	Slabs []Slab `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Plan) TableName() string {
	return "incentive_plans"
}

type Slab struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	PlanID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	FromPercentage decimal.Decimal  `gorm:"type:numeric(9,4);not null"`
	ToPercentage   decimal.Decimal  `gorm:"type:numeric(9,4);not null"`
	PayoutRate     decimal.Decimal  `gorm:"type:numeric(9,6);not null;default:0"`
	FixedAmount    *decimal.Decimal `gorm:"type:numeric(18,2)"`
	SortOrder      int              `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Slab) TableName() string {
	return "incentive_plan_slabs"
}

// Period returns the effective date range, or ErrInvalidDateRange when the
// stored dates are inverted.
func (p Plan) Period() (valueobject.DateRange, error) {
	return valueobject.NewDateRange(p.EffectiveFrom, p.EffectiveTo)
}

func (p Plan) Target() valueobject.Target {
	return valueobject.RawTarget(p.TargetValue, p.MinimumThreshold, p.AchievementKind, p.TargetUnit)
}

func (p Plan) IsEffectiveOn(date time.Time) bool {
	period, err := p.Period()
	if err != nil {
		return false
	}
	return period.Contains(date)
}

func (p Plan) money(v *decimal.Decimal) *valueobject.Money {
	if v == nil {
		return nil
	}
	m, err := valueobject.NewMoney(*v, p.Currency)
	if err != nil {
		return nil
	}
	return &m
}

func (p Plan) MaxPayout() *valueobject.Money { return p.money(p.MaximumPayout) }
func (p Plan) MinPayout() *valueobject.Money { return p.money(p.MinimumPayout) }

// SlabRanges returns the slabs as value objects ordered by SortOrder.
func (p Plan) SlabRanges() []valueobject.SlabRange {
	out := make([]valueobject.SlabRange, 0, len(p.Slabs))
	for _, s := range p.Slabs {
		out = append(out, valueobject.SlabRange{
			From:        s.FromPercentage,
			To:          s.ToPercentage,
			Rate:        s.PayoutRate,
			FixedAmount: p.money(s.FixedAmount),
			Order:       s.SortOrder,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// SlabIDForOrder resolves the persisted slab id for a slab order.
func (p Plan) SlabIDForOrder(order int) *uuid.UUID {
	for _, s := range p.Slabs {
		if s.SortOrder == order {
			id := s.ID
			return &id
		}
	}
	return nil
}

var allowedTransitions = map[Status][]Status{
	StatusDraft:     {StatusActive, StatusCancelled},
	StatusActive:    {StatusSuspended, StatusExpired, StatusCancelled},
	StatusSuspended: {StatusActive, StatusExpired, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the plan to status or returns *TransitionError.
func (p *Plan) TransitionTo(to Status, now time.Time) error {
	if !CanTransition(p.Status, to) {
		return &TransitionError{PlanID: p.ID.String(), From: p.Status, To: to}
	}
	p.Status = to
	if to == StatusActive && p.ActivatedAt == nil {
		t := now.UTC()
		p.ActivatedAt = &t
	}
	return nil
}
