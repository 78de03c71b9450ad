package calculation

import (
	"time"

	calculationerrors "go-incentive/internal/calculation/errors"
	"go-incentive/internal/valueobject"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusCalculated      Status = "CALCULATED"
	StatusBelowThreshold  Status = "BELOW_THRESHOLD"
	StatusProrated        Status = "PRORATED"
	StatusCapped          Status = "CAPPED"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusPaid            Status = "PAID"
	StatusVoided          Status = "VOIDED"
	StatusDeferred        Status = "DEFERRED"
	StatusIneligible      Status = "INELIGIBLE"
)

// Calculation is one employee's payout for one plan and period. It changes
// only through its transition methods and is never deleted, only voided.
type Calculation struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReferenceNumber string    `gorm:"type:varchar(30);not null;uniqueIndex"`
	EmployeeID      uuid.UUID `gorm:"type:uuid;not null;index:idx_calc_employee_plan_period"`
	PlanID          uuid.UUID `gorm:"type:uuid;not null;index:idx_calc_employee_plan_period"`
	PeriodStart     time.Time `gorm:"type:date;not null;index:idx_calc_employee_plan_period"`
	PeriodEnd       time.Time `gorm:"type:date;not null"`

	TargetValue   decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	ActualValue   decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Achievement   decimal.Decimal `gorm:"type:numeric(9,4);not null"`
	ProrataFactor decimal.Decimal `gorm:"type:numeric(9,4);not null;default:100"`
	GrossAmount   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	NetAmount     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency      string          `gorm:"type:char(3);not null"`
	AppliedSlabID *uuid.UUID      `gorm:"type:uuid"`
	Message       string          `gorm:"type:varchar(255)"`

	Status Status `gorm:"type:varchar(30);not null;index"`

	IsAdjusted        bool
	OriginalNetAmount *decimal.Decimal `gorm:"type:numeric(18,2)"`
	AdjustmentReason  string           `gorm:"type:text"`
	AdjustedBy        *uuid.UUID       `gorm:"type:uuid"`
	AdjustedAt        *time.Time

	SubmittedAt     *time.Time
	ApprovedAt      *time.Time
	RejectionReason string `gorm:"type:text"`
	PaidAt          *time.Time
	PaymentRef      string     `gorm:"type:varchar(100)"`
	VoidReason      string     `gorm:"type:text"`
	VoidedBy        *uuid.UUID `gorm:"type:uuid"`
	VoidedAt        *time.Time
	DeferReason     string `gorm:"type:text"`

	CalculatedBy uuid.UUID `gorm:"type:uuid;not null"`
	Version      int       `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Calculation) TableName() string {
	return "incentive_calculations"
}

func (c Calculation) Period() valueobject.DateRange {
	r, _ := valueobject.NewDateRange(c.PeriodStart, c.PeriodEnd)
	return r
}

func (c Calculation) Gross() valueobject.Money {
	m, _ := valueobject.NewMoney(c.GrossAmount, c.Currency)
	return m
}

func (c Calculation) Net() valueobject.Money {
	m, _ := valueobject.NewMoney(c.NetAmount, c.Currency)
	return m
}

// ApplyResult records an engine result and walks the status to where the
// result lands: INELIGIBLE, or CALCULATED followed by BELOW_THRESHOLD,
// PRORATED and/or CAPPED.
func (c *Calculation) ApplyResult(res Result, slabID *uuid.UUID) error {
	if !res.Eligible {
		if err := c.transitionTo(StatusIneligible); err != nil {
			return err
		}
	} else if err := c.transitionTo(StatusCalculated); err != nil {
		return err
	}

	c.Achievement = res.Achievement.Value()
	c.ProrataFactor = res.ProrataFactor.Value()
	c.GrossAmount = res.Gross.Amount()
	c.NetAmount = res.Net.Amount()
	c.Currency = res.Net.Currency()
	c.AppliedSlabID = slabID
	c.Message = res.Message
	c.IsAdjusted = false
	c.OriginalNetAmount = nil
	c.AdjustmentReason = ""
	c.AdjustedBy = nil
	c.AdjustedAt = nil
	c.RejectionReason = ""

	if !res.Eligible {
		return nil
	}
	if res.BelowThreshold {
		return c.transitionTo(StatusBelowThreshold)
	}
	if res.Prorated {
		if err := c.transitionTo(StatusProrated); err != nil {
			return err
		}
	}
	if res.Capped {
		return c.transitionTo(StatusCapped)
	}
	return nil
}

func (c *Calculation) Submit(now time.Time) error {
	if err := c.transitionTo(StatusPendingApproval); err != nil {
		return err
	}
	t := now.UTC()
	c.SubmittedAt = &t
	return nil
}

func (c *Calculation) Approve(now time.Time) error {
	if err := c.transitionTo(StatusApproved); err != nil {
		return err
	}
	t := now.UTC()
	c.ApprovedAt = &t
	return nil
}

func (c *Calculation) Reject(reason string) error {
	if err := c.transitionTo(StatusRejected); err != nil {
		return err
	}
	c.RejectionReason = reason
	return nil
}

func (c *Calculation) MarkPaid(paymentRef string, now time.Time) error {
	if err := c.transitionTo(StatusPaid); err != nil {
		return err
	}
	t := now.UTC()
	c.PaidAt = &t
	c.PaymentRef = paymentRef
	return nil
}

func (c *Calculation) Defer(reason string) error {
	if err := c.transitionTo(StatusDeferred); err != nil {
		return err
	}
	c.DeferReason = reason
	return nil
}

func (c *Calculation) Void(reason string, actor uuid.UUID, now time.Time) error {
	if err := c.transitionTo(StatusVoided); err != nil {
		return err
	}
	t := now.UTC()
	c.VoidReason = reason
	c.VoidedBy = &actor
	c.VoidedAt = &t
	return nil
}

// Adjust overrides the net amount while keeping the status. The first
// adjustment preserves the computed amount in OriginalNetAmount.
func (c *Calculation) Adjust(amount valueobject.Money, reason string, actor uuid.UUID, now time.Time) error {
	if c.Status != StatusCalculated && c.Status != StatusApproved {
		return &TransitionError{
			CalculationID: c.ID.String(),
			From:          c.Status,
			To:            c.Status,
			Op:            "adjust",
			cause:         calculationerrors.ErrNotAdjustable,
		}
	}
	if amount.IsNegative() {
		return calculationerrors.ErrInvalidAdjustment
	}
	if !amount.SameCurrency(c.Net()) {
		panic(&valueobject.CurrencyMismatchError{Op: "adjust", Left: c.Currency, Right: amount.Currency()})
	}

	if !c.IsAdjusted {
		orig := c.NetAmount
		c.OriginalNetAmount = &orig
	}
	t := now.UTC()
	c.NetAmount = amount.Amount()
	c.IsAdjusted = true
	c.AdjustmentReason = reason
	c.AdjustedBy = &actor
	c.AdjustedAt = &t
	return nil
}
