package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go-incentive/internal/bootstrap"
	"go-incentive/internal/events"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	dedupeKeyPrefix = "incentive:consumed:"
	dedupeTTL       = 24 * time.Hour
)

// LifecycleNotifier turns calculation and approval lifecycle events into
// audit entries. Redeliveries are dropped by event id.
type LifecycleNotifier struct {
	audit  bootstrap.AuditLogger
	rdb    *redis.Client
	logger *zap.Logger
}

func NewLifecycleNotifier(audit bootstrap.AuditLogger, rdb *redis.Client, logger ...*zap.Logger) *LifecycleNotifier {
	l := zap.L().Named("consumer.lifecycle_notifier")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("consumer.lifecycle_notifier")
	}
	return &LifecycleNotifier{audit: audit, rdb: rdb, logger: l}
}

func (n *LifecycleNotifier) Handle(ctx context.Context, msg kafkago.Message) error {
	entry, err := decodeLifecycle(msg)
	if err != nil {
		return err
	}

	if id := header(msg, "event_id"); id != "" && n.rdb != nil {
		first, err := n.rdb.SetNX(ctx, dedupeKeyPrefix+id, "1", dedupeTTL).Result()
		if err != nil {
			return fmt.Errorf("dedupe event %s: %w", id, err)
		}
		if !first {
			n.logger.Debug("duplicate lifecycle event dropped", zap.String("event_id", id))
			return nil
		}
	}

	n.audit.Log(ctx, entry)
	return nil
}

func decodeLifecycle(msg kafkago.Message) (bootstrap.AuditLog, error) {
	switch msg.Topic {
	case events.CalculationLifecycleTopic:
		var e events.CalculationEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return bootstrap.AuditLog{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		return bootstrap.AuditLog{
			Action:  auditAction(e.EventType),
			Message: fmt.Sprintf("calculation %s is %s", e.ReferenceNumber, e.Status),
			Meta: map[string]any{
				"calculation_id": e.CalculationID,
				"employee_id":    e.EmployeeID,
				"plan_id":        e.PlanID,
				"net_amount":     e.NetAmount,
				"currency":       e.Currency,
				"actor_id":       e.ActorID,
				"reason":         e.Reason,
				"approval_level": e.ApprovalLevel,
			},
		}, nil
	case events.ApprovalLifecycleTopic:
		var e events.ApprovalEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return bootstrap.AuditLog{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		return bootstrap.AuditLog{
			Action:  auditAction(e.EventType),
			Message: fmt.Sprintf("approval %s at level %d", e.ApprovalID, e.Level),
			Meta: map[string]any{
				"approval_id":      e.ApprovalID,
				"calculation_id":   e.CalculationID,
				"approver_id":      e.ApproverID,
				"next_approver_id": e.NextApproverID,
				"reason":           e.Reason,
			},
		}, nil
	default:
		return bootstrap.AuditLog{}, fmt.Errorf("%w: unknown topic %q", ErrUndecodable, msg.Topic)
	}
}

// auditAction maps "approval.escalated" to "APPROVAL_ESCALATED".
func auditAction(eventType string) string {
	return strings.ToUpper(strings.ReplaceAll(eventType, ".", "_"))
}
