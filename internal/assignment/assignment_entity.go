package assignment

import (
	"time"

	"go-incentive/internal/valueobject"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusRemoved Status = "REMOVED"
)

// Assignment enrols an employee in a plan for a window inside the plan period.
type Assignment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmployeeID    uuid.UUID `gorm:"type:uuid;not null;index:idx_plan_assignment_employee_plan"`
	PlanID        uuid.UUID `gorm:"type:uuid;not null;index:idx_plan_assignment_employee_plan"`
	EffectiveFrom time.Time `gorm:"type:date;not null"`
	EffectiveTo   time.Time `gorm:"type:date;not null"`
	Status        Status    `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	AssignedBy    uuid.UUID `gorm:"type:uuid;not null"`
	RemovedBy     *uuid.UUID
	RemovedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Assignment) TableName() string {
	return "plan_assignments"
}

func (a Assignment) Period() valueobject.DateRange {
	r, _ := valueobject.NewDateRange(a.EffectiveFrom, a.EffectiveTo)
	return r
}
