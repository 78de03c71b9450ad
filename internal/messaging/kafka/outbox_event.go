package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"go-incentive/internal/shared/contextutil"

	"github.com/google/uuid"
)

const (
	AggregateCalculation = "incentive_calculation"
	AggregateApproval    = "incentive_approval"
)

// NewOutboxEvent builds a pending outbox row for payload, tagged with the
// request id carried by ctx.
func NewOutboxEvent(ctx context.Context, aggregateType, aggregateID, eventType, topic string, payload any) (OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Topic:         topic,
		Payload:       data,
		Status:        OutboxStatusPending,
	}, nil
}
