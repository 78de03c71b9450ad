package approval

import (
	"context"
	"time"

	"go-incentive/internal/events"
	"go-incentive/internal/messaging/kafka"
)

func newApprovalEvent(ctx context.Context, a *Approval, eventType, nextApproverID, reason string, now time.Time) (kafka.OutboxEvent, error) {
	return kafka.NewOutboxEvent(ctx,
		kafka.AggregateApproval,
		a.ID.String(),
		eventType,
		events.ApprovalLifecycleTopic,
		events.ApprovalEvent{
			EventType:      eventType,
			ApprovalID:     a.ID.String(),
			CalculationID:  a.CalculationID.String(),
			ApproverID:     a.ApproverID.String(),
			NextApproverID: nextApproverID,
			Level:          a.Level,
			Reason:         reason,
			OccurredAt:     now.UTC(),
		},
	)
}
