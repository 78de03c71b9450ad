package scheduler

import (
	"context"
	"time"

	"go-incentive/internal/approval"

	"go.uber.org/zap"
)

// ApprovalSweeper is the part of approval.Service the sweep jobs call.
type ApprovalSweeper interface {
	EscalateOverdue(ctx context.Context) (approval.SweepResult, error)
	ExpireStale(ctx context.Context) (approval.SweepResult, error)
}

type EscalationJob struct {
	approvals ApprovalSweeper
	logger    *zap.Logger
}

func NewEscalationJob(approvals ApprovalSweeper, logger *zap.Logger) *EscalationJob {
	return &EscalationJob{approvals: approvals, logger: logger.Named("scheduler.escalation")}
}

func (j *EscalationJob) Name() string { return "approval-escalation" }

func (j *EscalationJob) Run(ctx context.Context) error {
	res, err := j.approvals.EscalateOverdue(ctx)
	if err != nil {
		return err
	}
	logResult(j.logger, res)
	return nil
}

// ExpirationJob escalates what can still move up before expiring, so only
// approvals at the top tier or without an escalation target expire.
type ExpirationJob struct {
	approvals ApprovalSweeper
	logger    *zap.Logger
}

func NewExpirationJob(approvals ApprovalSweeper, logger *zap.Logger) *ExpirationJob {
	return &ExpirationJob{approvals: approvals, logger: logger.Named("scheduler.expiration")}
}

func (j *ExpirationJob) Name() string { return "approval-expiration" }

func (j *ExpirationJob) Run(ctx context.Context) error {
	escalated, err := j.approvals.EscalateOverdue(ctx)
	if err != nil {
		return err
	}
	logResult(j.logger, escalated)

	expired, err := j.approvals.ExpireStale(ctx)
	if err != nil {
		return err
	}
	logResult(j.logger, expired)
	return nil
}

func logResult(logger *zap.Logger, res approval.SweepResult) {
	if res.Processed == 0 {
		return
	}
	fields := []zap.Field{
		zap.Int("processed", res.Processed),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	}
	if res.Failed > 0 {
		logger.Warn("sweep finished with failures", append(fields, zap.Any("errors", res.Errors))...)
		return
	}
	logger.Info("sweep finished", fields...)
}

// OutboxPurger is the part of kafka.OutboxRepository the retention job calls.
type OutboxPurger interface {
	PurgeSent(ctx context.Context, before time.Time) (int64, error)
}

// OutboxRetentionJob deletes relayed outbox rows older than the retention window.
type OutboxRetentionJob struct {
	outbox    OutboxPurger
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewOutboxRetentionJob(outbox OutboxPurger, retention time.Duration, logger *zap.Logger) *OutboxRetentionJob {
	return &OutboxRetentionJob{
		outbox:    outbox,
		retention: retention,
		now:       time.Now,
		logger:    logger.Named("scheduler.outbox_retention"),
	}
}

func (j *OutboxRetentionJob) Name() string { return "outbox-retention" }

func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	n, err := j.outbox.PurgeSent(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		j.logger.Info("purged sent outbox events", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
	return nil
}
