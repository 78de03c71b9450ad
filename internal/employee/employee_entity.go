package employee

import (
	"time"

	"go-incentive/internal/valueobject"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusProbation  Status = "PROBATION"
	StatusOnLeave    Status = "ON_LEAVE"
	StatusTerminated Status = "TERMINATED"
	StatusInactive   Status = "INACTIVE"
)

type Employee struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Code          string          `gorm:"type:varchar(30);not null;uniqueIndex:uq_employee_code"`
	FullName      string          `gorm:"type:varchar(150);not null"`
	DepartmentID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ManagerID     *uuid.UUID      `gorm:"type:uuid;index"`
	DateOfJoining time.Time       `gorm:"type:date;not null"`
	DateOfLeaving *time.Time      `gorm:"type:date"`
	BaseSalary    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	Currency      string          `gorm:"type:char(3);not null"`
	Status        Status          `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Salary returns the base salary as Money in the employee's currency.
func (e Employee) Salary() valueobject.Money {
	m, err := valueobject.NewMoney(e.BaseSalary, e.Currency)
	if err != nil {
		return valueobject.ZeroMoney(e.Currency)
	}
	return m
}

// CanParticipate is true for statuses that may earn incentives.
func (e Employee) CanParticipate() bool {
	return e.Status == StatusActive || e.Status == StatusProbation
}
