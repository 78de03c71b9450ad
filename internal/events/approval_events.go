package events

import "time"

const ApprovalLifecycleTopic = "incentive.approval.lifecycle.v1"

const (
	ApprovalEscalated = "approval.escalated"
	ApprovalExpired   = "approval.expired"
	ApprovalDelegated = "approval.delegated"
)

// ApprovalEvent signals approval follow-ups that do not change the
// calculation itself, for notification and monitoring.
type ApprovalEvent struct {
	EventType      string    `json:"event_type"`
	ApprovalID     string    `json:"approval_id"`
	CalculationID  string    `json:"calculation_id"`
	ApproverID     string    `json:"approver_id"`
	NextApproverID string    `json:"next_approver_id,omitempty"`
	Level          int       `json:"level"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
