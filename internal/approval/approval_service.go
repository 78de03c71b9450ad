package approval

import (
	"context"
	"database/sql"
	"errors"
	"time"

	approvalerrors "go-incentive/internal/approval/errors"
	"go-incentive/internal/calculation"
	"go-incentive/internal/employee"
	"go-incentive/internal/events"
	"go-incentive/internal/messaging/kafka"
	"go-incentive/internal/plan"
	"go-incentive/internal/shared/apperror"
	"go-incentive/internal/shared/scope"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sweepBatchSize   = 200
	escalationReason = "approval SLA breached"
)

// errAlreadyDecided marks a sweep item another writer closed after it was listed.
var errAlreadyDecided = errors.New("approval already decided")

//go:generate mockgen -source=approval_service.go -destination=mock/approval_service_mock.go -package=mock
type Service interface {
	Submit(ctx context.Context, actorID string, req SubmitRequest) (SubmitResponse, error)
	Approve(ctx context.Context, actorID, id string, req DecisionRequest) (DecisionResponse, error)
	Reject(ctx context.Context, actorID, id string, req ReasonRequest) (DecisionResponse, error)
	Delegate(ctx context.Context, actorID, id string, req DelegateRequest) (ApprovalResponse, error)
	Escalate(ctx context.Context, actorID, id string, req ReasonRequest) (ApprovalResponse, error)
	BulkApprove(ctx context.Context, actorID string, req BulkApproveRequest) (BatchResult, error)
	EscalateOverdue(ctx context.Context) (SweepResult, error)
	ExpireStale(ctx context.Context) (SweepResult, error)
	ListPending(ctx context.Context, approverID string, page scope.Page) ([]ApprovalResponse, int64, error)
	ListByCalculation(ctx context.Context, calculationID string) ([]ApprovalResponse, error)
}

type service struct {
	db           *sql.DB
	repo         Repository
	calculations calculation.Repository
	plans        plan.Repository
	employees    employee.Repository
	hierarchy    OrgHierarchy
	workflow     *WorkflowService
	outbox       kafka.OutboxRepository
	logger       *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	calculations calculation.Repository,
	plans plan.Repository,
	employees employee.Repository,
	hierarchy OrgHierarchy,
	workflow *WorkflowService,
	outbox kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("approval.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.service")
	}
	return &service{
		db:           db,
		repo:         repo,
		calculations: calculations,
		plans:        plans,
		employees:    employees,
		hierarchy:    hierarchy,
		workflow:     workflow,
		outbox:       outbox,
		logger:       l,
	}
}

// Submit sends a computed calculation into the approval chain, starting at
// level 1. Plans that do not require approval are approved on submission.
func (s *service) Submit(ctx context.Context, actorID string, req SubmitRequest) (SubmitResponse, error) {
	s.logger.Debug("submit calculation requested",
		zap.String("actor_id", actorID),
		zap.String("calculation_id", req.CalculationID),
	)

	if _, err := uuid.Parse(actorID); err != nil {
		return SubmitResponse{}, approvalerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(req.CalculationID); err != nil {
		return SubmitResponse{}, approvalerrors.ErrInvalidCalculationID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit calculation begin tx failed", zap.Error(err))
		return SubmitResponse{}, err
	}
	defer tx.Rollback()

	calcs := s.calculations.WithTx(tx)
	c, err := calcs.FindByID(ctx, req.CalculationID)
	if err != nil {
		return SubmitResponse{}, err
	}
	p, err := s.plans.WithTx(tx).FindByID(ctx, c.PlanID.String())
	if err != nil {
		return SubmitResponse{}, err
	}

	now := s.workflow.Now()
	if err := c.Submit(now); err != nil {
		s.logger.Warn("submit calculation rejected", zap.String("calculation_id", req.CalculationID), zap.Error(err))
		return SubmitResponse{}, err
	}

	resp := SubmitResponse{
		CalculationID: req.CalculationID,
		Requirement:   s.workflow.DetermineApprovalLevel(c.Net()),
	}

	if !p.RequiresApproval {
		if err := c.Approve(now); err != nil {
			return SubmitResponse{}, err
		}
		if err := calcs.Update(ctx, c); err != nil {
			s.logger.Error("submit calculation persist failed", zap.Error(err))
			return SubmitResponse{}, err
		}
		detail := calculation.EventDetail{ActorID: actorID}
		if err := s.emitCalculation(ctx, tx, c, events.CalculationSubmitted, detail, now); err != nil {
			return SubmitResponse{}, err
		}
		if err := s.emitCalculation(ctx, tx, c, events.CalculationApproved, detail, now); err != nil {
			return SubmitResponse{}, err
		}
	} else {
		emp, err := s.employees.WithTx(tx).FindByID(ctx, c.EmployeeID.String())
		if err != nil {
			return SubmitResponse{}, err
		}
		approverID, err := s.resolveApprover(ctx, 1, emp.DepartmentID.String())
		if err != nil {
			return SubmitResponse{}, err
		}

		first := s.workflow.RequirementForLevel(1)
		a := &Approval{
			ID:            uuid.New(),
			CalculationID: c.ID,
			DepartmentID:  emp.DepartmentID,
			ApproverID:    approverID,
			Level:         first.Level,
			LevelName:     first.LevelName,
			Status:        StatusPending,
			RequestedAt:   now.UTC(),
			ExpiresAt:     s.workflow.CalculateExpirationTime(first.Level),
		}
		if err := s.repo.WithTx(tx).Create(ctx, a); err != nil {
			s.logger.Error("submit calculation create approval failed", zap.Error(err))
			return SubmitResponse{}, err
		}
		if err := calcs.Update(ctx, c); err != nil {
			s.logger.Error("submit calculation persist failed", zap.Error(err))
			return SubmitResponse{}, err
		}
		detail := calculation.EventDetail{ActorID: actorID, Level: a.Level}
		if err := s.emitCalculation(ctx, tx, c, events.CalculationSubmitted, detail, now); err != nil {
			return SubmitResponse{}, err
		}
		ar := mapToResponse(*a)
		resp.Approval = &ar
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("submit calculation commit failed", zap.Error(err))
		return SubmitResponse{}, err
	}
	resp.CalculationStatus = string(c.Status)
	s.logger.Info("submit calculation success",
		zap.String("calculation_id", req.CalculationID),
		zap.String("status", resp.CalculationStatus),
		zap.Int("required_level", resp.Requirement.Level),
	)

	return resp, nil
}

func (s *service) Approve(ctx context.Context, actorID, id string, req DecisionRequest) (DecisionResponse, error) {
	s.logger.Debug("approve requested", zap.String("actor_id", actorID), zap.String("approval_id", id))

	actor, err := uuid.Parse(actorID)
	if err != nil {
		return DecisionResponse{}, approvalerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("approve begin tx failed", zap.Error(err))
		return DecisionResponse{}, err
	}
	defer tx.Rollback()

	resp, err := s.approveOne(ctx, tx, actor, id, req.Comments)
	if err != nil {
		return DecisionResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("approve commit failed", zap.Error(err))
		return DecisionResponse{}, err
	}
	s.logger.Info("approve success",
		zap.String("approval_id", id),
		zap.String("calculation_status", resp.CalculationStatus),
	)

	return resp, nil
}

// Reject closes the calculation and cancels every other pending approval on it.
func (s *service) Reject(ctx context.Context, actorID, id string, req ReasonRequest) (DecisionResponse, error) {
	s.logger.Debug("reject requested", zap.String("actor_id", actorID), zap.String("approval_id", id))

	actor, err := uuid.Parse(actorID)
	if err != nil {
		return DecisionResponse{}, approvalerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return DecisionResponse{}, approvalerrors.ErrInvalidApprovalID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("reject begin tx failed", zap.Error(err))
		return DecisionResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	a, err := s.loadForApprover(ctx, qtx, id, actor)
	if err != nil {
		return DecisionResponse{}, err
	}
	calcs := s.calculations.WithTx(tx)
	c, err := s.openCalculation(ctx, calcs, a)
	if err != nil {
		return DecisionResponse{}, err
	}

	now := s.workflow.Now()
	if err := a.Reject(req.Reason, now); err != nil {
		s.logger.Warn("reject rejected", zap.String("approval_id", id), zap.Error(err))
		return DecisionResponse{}, err
	}
	if err := c.Reject(req.Reason); err != nil {
		s.logger.Warn("reject calculation transition failed", zap.Error(err))
		return DecisionResponse{}, err
	}

	if err := qtx.Update(ctx, a); err != nil {
		s.logger.Error("reject persist approval failed", zap.Error(err))
		return DecisionResponse{}, err
	}
	if err := s.cancelSiblings(ctx, qtx, a, "calculation rejected", now); err != nil {
		return DecisionResponse{}, err
	}
	if err := calcs.Update(ctx, c); err != nil {
		s.logger.Error("reject persist calculation failed", zap.Error(err))
		return DecisionResponse{}, err
	}
	detail := calculation.EventDetail{ActorID: actorID, Reason: req.Reason, Level: a.Level}
	if err := s.emitCalculation(ctx, tx, c, events.CalculationRejected, detail, now); err != nil {
		return DecisionResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("reject commit failed", zap.Error(err))
		return DecisionResponse{}, err
	}
	s.logger.Info("reject success",
		zap.String("approval_id", id),
		zap.String("calculation_id", c.ID.String()),
	)

	return DecisionResponse{Approval: mapToResponse(*a), CalculationStatus: string(c.Status)}, nil
}

// Delegate hands a pending approval to another employee at the same level and
// with the same deadline.
func (s *service) Delegate(ctx context.Context, actorID, id string, req DelegateRequest) (ApprovalResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return ApprovalResponse{}, approvalerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return ApprovalResponse{}, approvalerrors.ErrInvalidApprovalID
	}
	to, err := uuid.Parse(req.ToEmployeeID)
	if err != nil {
		return ApprovalResponse{}, apperror.InvalidField("to_employee_id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("delegate begin tx failed", zap.Error(err))
		return ApprovalResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	a, err := s.loadForApprover(ctx, qtx, id, actor)
	if err != nil {
		return ApprovalResponse{}, err
	}
	if to == a.ApproverID {
		return ApprovalResponse{}, approvalerrors.ErrSelfDelegation
	}
	if _, err := s.openCalculation(ctx, s.calculations.WithTx(tx), a); err != nil {
		return ApprovalResponse{}, err
	}
	if _, err := s.employees.WithTx(tx).FindByID(ctx, to.String()); err != nil {
		return ApprovalResponse{}, err
	}

	now := s.workflow.Now()
	if err := a.Delegate(to, now); err != nil {
		s.logger.Warn("delegate rejected", zap.String("approval_id", id), zap.Error(err))
		return ApprovalResponse{}, err
	}
	next := a.Successor(to, a.Level, a.LevelName, a.ExpiresAt, now)

	if err := qtx.Update(ctx, a); err != nil {
		s.logger.Error("delegate persist failed", zap.Error(err))
		return ApprovalResponse{}, err
	}
	if err := qtx.Create(ctx, next); err != nil {
		s.logger.Error("delegate create approval failed", zap.Error(err))
		return ApprovalResponse{}, err
	}
	if err := s.emitApproval(ctx, tx, a, events.ApprovalDelegated, to.String(), "", now); err != nil {
		return ApprovalResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("delegate commit failed", zap.Error(err))
		return ApprovalResponse{}, err
	}
	s.logger.Info("delegate success",
		zap.String("approval_id", id),
		zap.String("delegate_id", to.String()),
	)

	return mapToResponse(*next), nil
}

func (s *service) Escalate(ctx context.Context, actorID, id string, req ReasonRequest) (ApprovalResponse, error) {
	if _, err := uuid.Parse(actorID); err != nil {
		return ApprovalResponse{}, approvalerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return ApprovalResponse{}, approvalerrors.ErrInvalidApprovalID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("escalate begin tx failed", zap.Error(err))
		return ApprovalResponse{}, err
	}
	defer tx.Rollback()

	a, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
	if err != nil {
		return ApprovalResponse{}, err
	}
	next, err := s.escalateOne(ctx, tx, a, req.Reason)
	if err != nil {
		return ApprovalResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("escalate commit failed", zap.Error(err))
		return ApprovalResponse{}, err
	}
	s.logger.Info("escalate success",
		zap.String("approval_id", id),
		zap.String("actor_id", actorID),
		zap.String("escalated_to", next.ApproverID.String()),
	)

	return mapToResponse(*next), nil
}

// BulkApprove approves each id on its own savepoint; failures are reported
// per id and do not undo the others. When ctx ends between items the ones
// already approved are committed and the rest are returned as unprocessed.
func (s *service) BulkApprove(ctx context.Context, actorID string, req BulkApproveRequest) (BatchResult, error) {
	s.logger.Debug("bulk approve requested",
		zap.String("actor_id", actorID),
		zap.Int("items", len(req.ApprovalIDs)),
	)

	actor, err := uuid.Parse(actorID)
	if err != nil {
		return BatchResult{}, approvalerrors.ErrInvalidActorID
	}

	// The transaction outlives ctx so finished items can still commit.
	txCtx := context.WithoutCancel(ctx)
	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		s.logger.Error("bulk approve begin tx failed", zap.Error(err))
		return BatchResult{}, err
	}
	defer tx.Rollback()

	result := BatchResult{Items: []DecisionResponse{}, Errors: []BatchError{}}
	var interrupted error
	for i, id := range req.ApprovalIDs {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("bulk approve interrupted", zap.Int("processed", i), zap.Error(err))
			result.Unprocessed = append([]string{}, req.ApprovalIDs[i:]...)
			interrupted = err
			break
		}

		if _, err := tx.ExecContext(txCtx, "SAVEPOINT bulk_item"); err != nil {
			s.logger.Error("bulk approve savepoint failed", zap.Error(err))
			return BatchResult{}, err
		}

		resp, err := s.approveOne(ctx, tx, actor, id, req.Comments)
		if err != nil {
			if _, rbErr := tx.ExecContext(txCtx, "ROLLBACK TO SAVEPOINT bulk_item"); rbErr != nil {
				s.logger.Error("bulk approve rollback to savepoint failed", zap.Error(rbErr))
				return BatchResult{}, rbErr
			}
			result.FailureCount++
			result.Errors = append(result.Errors, BatchError{
				ID:      id,
				Code:    apperror.CodeOf(err),
				Message: apperror.MessageOf(err),
			})
			continue
		}

		if _, err := tx.ExecContext(txCtx, "RELEASE SAVEPOINT bulk_item"); err != nil {
			s.logger.Error("bulk approve release savepoint failed", zap.Error(err))
			return BatchResult{}, err
		}
		result.SuccessCount++
		result.Items = append(result.Items, resp)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("bulk approve commit failed", zap.Error(err))
		return BatchResult{}, err
	}
	s.logger.Info("bulk approve finished",
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailureCount),
		zap.Int("unprocessed", len(result.Unprocessed)),
	)

	if interrupted != nil {
		return result, apperror.BatchInterrupted(interrupted, result.Unprocessed)
	}
	return result, nil
}

// EscalateOverdue moves pending approvals past their SLA one level up. An
// approval without an escalation target stays pending and is reported.
func (s *service) EscalateOverdue(ctx context.Context) (SweepResult, error) {
	overdue, err := s.repo.FindOverdue(ctx, s.workflow.Now(), s.workflow.TopLevel(), sweepBatchSize)
	if err != nil {
		s.logger.Error("escalation sweep query failed", zap.Error(err))
		return SweepResult{}, err
	}

	return s.sweep(ctx, "escalation", overdue, func(tx *sql.Tx, a *Approval) error {
		_, err := s.escalateOne(ctx, tx, a, escalationReason)
		return err
	})
}

// ExpireStale closes pending approvals whose expiry is at or before the
// cutoff (now minus the configured grace, zero by default). The calculation
// is left in PENDING_APPROVAL for follow-up.
func (s *service) ExpireStale(ctx context.Context) (SweepResult, error) {
	stale, err := s.repo.FindExpired(ctx, s.workflow.ExpirationCutoff(), sweepBatchSize)
	if err != nil {
		s.logger.Error("expiration sweep query failed", zap.Error(err))
		return SweepResult{}, err
	}

	return s.sweep(ctx, "expiration", stale, func(tx *sql.Tx, a *Approval) error {
		now := s.workflow.Now()
		if err := a.Expire(now); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Update(ctx, a); err != nil {
			return err
		}
		return s.emitApproval(ctx, tx, a, events.ApprovalExpired, "", "approval expired", now)
	})
}

func (s *service) ListPending(ctx context.Context, approverID string, page scope.Page) ([]ApprovalResponse, int64, error) {
	if _, err := uuid.Parse(approverID); err != nil {
		return nil, 0, approvalerrors.ErrInvalidActorID
	}
	items, total, err := s.repo.FindPendingByApprover(ctx, approverID, page)
	if err != nil {
		return nil, 0, err
	}
	return mapToListResponse(items), total, nil
}

func (s *service) ListByCalculation(ctx context.Context, calculationID string) ([]ApprovalResponse, error) {
	if _, err := uuid.Parse(calculationID); err != nil {
		return nil, approvalerrors.ErrInvalidCalculationID
	}
	items, err := s.repo.FindByCalculation(ctx, calculationID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(items), nil
}

// approveOne records the approval and either opens the next level or, when
// the amount is covered, approves the calculation.
func (s *service) approveOne(ctx context.Context, tx *sql.Tx, actor uuid.UUID, id, comments string) (DecisionResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return DecisionResponse{}, approvalerrors.ErrInvalidApprovalID
	}

	qtx := s.repo.WithTx(tx)
	a, err := s.loadForApprover(ctx, qtx, id, actor)
	if err != nil {
		return DecisionResponse{}, err
	}
	calcs := s.calculations.WithTx(tx)
	c, err := s.openCalculation(ctx, calcs, a)
	if err != nil {
		return DecisionResponse{}, err
	}

	now := s.workflow.Now()
	if err := a.Approve(comments, now); err != nil {
		s.logger.Warn("approve rejected", zap.String("approval_id", id), zap.Error(err))
		return DecisionResponse{}, err
	}
	if err := qtx.Update(ctx, a); err != nil {
		s.logger.Error("approve persist approval failed", zap.Error(err))
		return DecisionResponse{}, err
	}

	resp := DecisionResponse{Approval: mapToResponse(*a)}

	if s.workflow.RequiresNextLevelApproval(c.Net(), a.Level) {
		level := a.Level + 1
		approverID, err := s.resolveApprover(ctx, level, a.DepartmentID.String())
		if err != nil {
			return DecisionResponse{}, err
		}
		req := s.workflow.RequirementForLevel(level)
		next := a.Successor(approverID, level, req.LevelName, s.workflow.CalculateExpirationTime(level), now)
		if err := qtx.Create(ctx, next); err != nil {
			s.logger.Error("approve create next level failed", zap.Error(err))
			return DecisionResponse{}, err
		}
		nr := mapToResponse(*next)
		resp.Next = &nr
	} else {
		if err := c.Approve(now); err != nil {
			s.logger.Warn("approve calculation transition failed", zap.Error(err))
			return DecisionResponse{}, err
		}
		if err := s.cancelSiblings(ctx, qtx, a, "calculation approved", now); err != nil {
			return DecisionResponse{}, err
		}
		detail := calculation.EventDetail{ActorID: actor.String(), Level: a.Level}
		if err := s.emitCalculation(ctx, tx, c, events.CalculationApproved, detail, now); err != nil {
			return DecisionResponse{}, err
		}
	}

	// Saved on both paths so concurrent decisions on one calculation collide
	// on its version.
	if err := calcs.Update(ctx, c); err != nil {
		s.logger.Error("approve persist calculation failed", zap.Error(err))
		return DecisionResponse{}, err
	}

	resp.CalculationStatus = string(c.Status)
	return resp, nil
}

func (s *service) escalateOne(ctx context.Context, tx *sql.Tx, a *Approval, reason string) (*Approval, error) {
	if !a.IsPending() {
		return nil, &TransitionError{ApprovalID: a.ID.String(), From: a.Status, To: StatusEscalated}
	}
	calcs := s.calculations.WithTx(tx)
	c, err := s.openCalculation(ctx, calcs, a)
	if err != nil {
		return nil, err
	}

	target, err := s.hierarchy.GetEscalationTarget(ctx, a.ApproverID.String(), a.Level, a.DepartmentID.String())
	if err != nil {
		s.logger.Error("escalation target lookup failed", zap.Error(err))
		return nil, err
	}
	targetID, err := uuid.Parse(target)
	if err != nil {
		s.logger.Warn("no escalation target",
			zap.String("approval_id", a.ID.String()),
			zap.Int("level", a.Level),
		)
		return nil, approvalerrors.ErrNoEscalationTarget
	}

	level := a.Level + 1
	if level > s.workflow.TopLevel() {
		level = s.workflow.TopLevel()
	}
	req := s.workflow.RequirementForLevel(level)

	now := s.workflow.Now()
	if err := a.Escalate(reason, targetID, now); err != nil {
		return nil, err
	}
	next := a.Successor(targetID, level, req.LevelName, s.workflow.CalculateExpirationTime(level), now)

	qtx := s.repo.WithTx(tx)
	if err := qtx.Update(ctx, a); err != nil {
		s.logger.Error("escalate persist failed", zap.Error(err))
		return nil, err
	}
	if err := qtx.Create(ctx, next); err != nil {
		s.logger.Error("escalate create approval failed", zap.Error(err))
		return nil, err
	}
	// Bumps the version so a decision racing this escalation fails.
	if err := calcs.Update(ctx, c); err != nil {
		s.logger.Error("escalate persist calculation failed", zap.Error(err))
		return nil, err
	}
	if err := s.emitApproval(ctx, tx, a, events.ApprovalEscalated, target, reason, now); err != nil {
		return nil, err
	}
	return next, nil
}

// sweep applies fn to every listed item in its own transaction. Each item
// is read again under a row lock first; one decided in the meantime is
// skipped.
func (s *service) sweep(ctx context.Context, name string, items []Approval, fn func(tx *sql.Tx, a *Approval) error) (SweepResult, error) {
	result := SweepResult{Errors: []BatchError{}}
	for i := range items {
		if err := ctx.Err(); err != nil {
			s.logger.Warn(name+" sweep cancelled", zap.Int("processed", result.Processed), zap.Error(err))
			return result, err
		}
		id := items[i].ID.String()
		result.Processed++

		err := func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer tx.Rollback()
			a, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if !a.IsPending() {
				return errAlreadyDecided
			}
			if err := fn(tx, a); err != nil {
				return err
			}
			return tx.Commit()
		}()
		switch {
		case errors.Is(err, errAlreadyDecided):
			result.Skipped++
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, BatchError{
				ID:      id,
				Code:    apperror.CodeOf(err),
				Message: apperror.MessageOf(err),
			})
		default:
			result.Succeeded++
		}
	}

	s.logger.Info(name+" sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *service) loadForApprover(ctx context.Context, repo Repository, id string, actor uuid.UUID) (*Approval, error) {
	a, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.ApproverID != actor {
		s.logger.Warn("approval action by non approver",
			zap.String("approval_id", id),
			zap.String("actor_id", actor.String()),
		)
		return nil, approvalerrors.ErrNotApprover
	}
	return a, nil
}

// openCalculation loads the calculation behind a and requires it to still be
// awaiting approval.
func (s *service) openCalculation(ctx context.Context, calcs calculation.Repository, a *Approval) (*calculation.Calculation, error) {
	c, err := calcs.FindByID(ctx, a.CalculationID.String())
	if err != nil {
		return nil, err
	}
	if c.Status != calculation.StatusPendingApproval {
		s.logger.Warn("approval action on closed calculation",
			zap.String("approval_id", a.ID.String()),
			zap.String("calculation_id", c.ID.String()),
			zap.String("calculation_status", string(c.Status)),
		)
		return nil, approvalerrors.ErrCalculationNotPending
	}
	return c, nil
}

func (s *service) resolveApprover(ctx context.Context, level int, departmentID string) (uuid.UUID, error) {
	id, err := s.hierarchy.GetApproverForLevel(ctx, level, departmentID)
	if err != nil {
		s.logger.Error("approver lookup failed", zap.Error(err))
		return uuid.Nil, err
	}
	approverID, err := uuid.Parse(id)
	if err != nil {
		s.logger.Warn("no approver configured",
			zap.Int("level", level),
			zap.String("department_id", departmentID),
		)
		return uuid.Nil, approvalerrors.ErrNoApprover
	}
	return approverID, nil
}

func (s *service) cancelSiblings(ctx context.Context, repo Repository, decided *Approval, reason string, now time.Time) error {
	if _, err := cancelPending(ctx, repo, decided.CalculationID.String(), decided.ID, reason, now); err != nil {
		s.logger.Error("cancel sibling approvals failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *service) emitCalculation(ctx context.Context, tx *sql.Tx, c *calculation.Calculation, eventType string, detail calculation.EventDetail, now time.Time) error {
	evt, err := calculation.NewLifecycleEvent(ctx, c, eventType, detail, now)
	if err != nil {
		return err
	}
	if err := s.outbox.WithTx(tx).Create(ctx, evt); err != nil {
		s.logger.Error("persist calculation event failed", zap.String("event_type", eventType), zap.Error(err))
		return err
	}
	return nil
}

func (s *service) emitApproval(ctx context.Context, tx *sql.Tx, a *Approval, eventType, nextApproverID, reason string, now time.Time) error {
	evt, err := newApprovalEvent(ctx, a, eventType, nextApproverID, reason, now)
	if err != nil {
		return err
	}
	if err := s.outbox.WithTx(tx).Create(ctx, evt); err != nil {
		s.logger.Error("persist approval event failed", zap.String("event_type", eventType), zap.Error(err))
		return err
	}
	return nil
}

func mapToResponse(a Approval) ApprovalResponse {
	resp := ApprovalResponse{
		ID:               a.ID.String(),
		CalculationID:    a.CalculationID.String(),
		ApproverID:       a.ApproverID.String(),
		Level:            a.Level,
		LevelName:        a.LevelName,
		Status:           string(a.Status),
		RequestedAt:      a.RequestedAt.UTC().Format(time.RFC3339),
		ExpiresAt:        a.ExpiresAt.UTC().Format(time.RFC3339),
		Comments:         a.Comments,
		EscalationReason: a.EscalationReason,
		DelegatedTo:      uuidString(a.DelegatedTo),
		EscalatedTo:      uuidString(a.EscalatedTo),
		PreviousID:       uuidString(a.PreviousID),
	}
	if a.DecidedAt != nil {
		v := a.DecidedAt.UTC().Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	return resp
}

func mapToListResponse(items []Approval) []ApprovalResponse {
	out := make([]ApprovalResponse, 0, len(items))
	for _, a := range items {
		out = append(out, mapToResponse(a))
	}
	return out
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
}
