package events

import "time"

const CalculationLifecycleTopic = "incentive.calculation.lifecycle.v1"

const (
	CalculationCompleted = "calculation.completed"
	CalculationSubmitted = "calculation.submitted"
	CalculationApproved  = "calculation.approved"
	CalculationRejected  = "calculation.rejected"
	CalculationPaid      = "calculation.paid"
)

type CalculationEvent struct {
	EventType       string    `json:"event_type"`
	CalculationID   string    `json:"calculation_id"`
	ReferenceNumber string    `json:"reference_number"`
	EmployeeID      string    `json:"employee_id"`
	PlanID          string    `json:"plan_id"`
	Status          string    `json:"status"`
	NetAmount       string    `json:"net_amount"`
	Currency        string    `json:"currency"`
	ActorID         string    `json:"actor_id,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	ApprovalLevel   int       `json:"approval_level,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
