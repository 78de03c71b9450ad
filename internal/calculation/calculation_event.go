package calculation

import (
	"context"
	"time"

	"go-incentive/internal/events"
	"go-incentive/internal/messaging/kafka"
)

// EventDetail carries the optional fields of a lifecycle event.
type EventDetail struct {
	ActorID string
	Reason  string
	Level   int
}

// NewLifecycleEvent builds the outbox row announcing a calculation status change.
func NewLifecycleEvent(ctx context.Context, c *Calculation, eventType string, detail EventDetail, now time.Time) (kafka.OutboxEvent, error) {
	payload := events.CalculationEvent{
		EventType:       eventType,
		CalculationID:   c.ID.String(),
		ReferenceNumber: c.ReferenceNumber,
		EmployeeID:      c.EmployeeID.String(),
		PlanID:          c.PlanID.String(),
		Status:          string(c.Status),
		NetAmount:       c.NetAmount.StringFixed(2),
		Currency:        c.Currency,
		ActorID:         detail.ActorID,
		Reason:          detail.Reason,
		ApprovalLevel:   detail.Level,
		OccurredAt:      now.UTC(),
	}
	return kafka.NewOutboxEvent(ctx,
		kafka.AggregateCalculation,
		c.ID.String(),
		eventType,
		events.CalculationLifecycleTopic,
		payload,
	)
}
