package approval

import (
	"fmt"
	"time"

	approvalerrors "go-incentive/internal/approval/errors"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusEscalated Status = "ESCALATED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
	StatusDelegated Status = "DELEGATED"
)

// Approval is one approver's decision slot for a calculation at one level.
// Every status except PENDING is terminal.
type Approval struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CalculationID uuid.UUID `gorm:"type:uuid;not null;index"`
	DepartmentID  uuid.UUID `gorm:"type:uuid;not null"`
	ApproverID    uuid.UUID `gorm:"type:uuid;not null;index:idx_approvals_approver_status"`
	Level         int       `gorm:"not null"`
	LevelName     string    `gorm:"type:varchar(50);not null"`
	Status        Status    `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_approvals_approver_status"`

	RequestedAt time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	DecidedAt   *time.Time

	Comments         string     `gorm:"type:text"`
	DelegatedTo      *uuid.UUID `gorm:"type:uuid"`
	EscalatedTo      *uuid.UUID `gorm:"type:uuid"`
	EscalationReason string     `gorm:"type:text"`
	PreviousID       *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Approval) TableName() string {
	return "incentive_approvals"
}

func (a Approval) IsPending() bool {
	return a.Status == StatusPending
}

// IsOverdue is true for a pending approval past its SLA.
func (a Approval) IsOverdue(now time.Time) bool {
	return a.IsPending() && !now.Before(a.ExpiresAt)
}

func (a *Approval) Approve(comments string, now time.Time) error {
	if err := a.decide(StatusApproved, now); err != nil {
		return err
	}
	a.Comments = comments
	return nil
}

func (a *Approval) Reject(reason string, now time.Time) error {
	if err := a.decide(StatusRejected, now); err != nil {
		return err
	}
	a.Comments = reason
	return nil
}

func (a *Approval) Delegate(to uuid.UUID, now time.Time) error {
	if err := a.decide(StatusDelegated, now); err != nil {
		return err
	}
	a.DelegatedTo = &to
	return nil
}

func (a *Approval) Escalate(reason string, to uuid.UUID, now time.Time) error {
	if err := a.decide(StatusEscalated, now); err != nil {
		return err
	}
	a.EscalatedTo = &to
	a.EscalationReason = reason
	return nil
}

func (a *Approval) Cancel(reason string, now time.Time) error {
	if err := a.decide(StatusCancelled, now); err != nil {
		return err
	}
	a.Comments = reason
	return nil
}

func (a *Approval) Expire(now time.Time) error {
	return a.decide(StatusExpired, now)
}

func (a *Approval) decide(to Status, now time.Time) error {
	if !a.IsPending() {
		return &TransitionError{ApprovalID: a.ID.String(), From: a.Status, To: to}
	}
	t := now.UTC()
	a.Status = to
	a.DecidedAt = &t
	return nil
}

// Successor builds the pending approval that takes over from a at the given
// level and approver.
func (a Approval) Successor(approverID uuid.UUID, level int, levelName string, expiresAt, now time.Time) *Approval {
	prev := a.ID
	return &Approval{
		ID:            uuid.New(),
		CalculationID: a.CalculationID,
		DepartmentID:  a.DepartmentID,
		ApproverID:    approverID,
		Level:         level,
		LevelName:     levelName,
		Status:        StatusPending,
		RequestedAt:   now.UTC(),
		ExpiresAt:     expiresAt,
		PreviousID:    &prev,
	}
}

// TransitionError reports a decision on an approval that is not pending.
type TransitionError struct {
	ApprovalID string
	From       Status
	To         Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("approval %s cannot move from %s to %s", e.ApprovalID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return approvalerrors.ErrInvalidApprovalState
}
