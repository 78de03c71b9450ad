package calculation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	calculationerrors "go-incentive/internal/calculation/errors"
	"go-incentive/internal/employee"
	"go-incentive/internal/events"
	"go-incentive/internal/messaging/kafka"
	"go-incentive/internal/plan"
	"go-incentive/internal/shared/apperror"
	"go-incentive/internal/shared/counter"
	"go-incentive/internal/shared/scope"
	"go-incentive/internal/valueobject"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const referenceCounter = "incentive_calculation"

// AssignmentChecker answers whether an employee is enrolled in a plan for a period.
type AssignmentChecker interface {
	IsAssigned(ctx context.Context, employeeID, planID string, period valueobject.DateRange) (bool, error)
}

// ApprovalCanceller closes the pending approvals of a calculation on tx.
type ApprovalCanceller interface {
	CancelPending(ctx context.Context, tx *sql.Tx, calculationID, reason string) (int, error)
}

//go:generate mockgen -source=calculation_service.go -destination=mock/calculation_service_mock.go -package=mock
type Service interface {
	Calculate(ctx context.Context, actorID string, req CalculateRequest) (CalculationResponse, error)
	BulkCalculate(ctx context.Context, actorID string, req BulkCalculateRequest) (BatchResult, error)
	Defer(ctx context.Context, actorID string, req DeferRequest) (CalculationResponse, error)
	Recalculate(ctx context.Context, actorID, id string, req RecalculateRequest) (CalculationResponse, error)
	Adjust(ctx context.Context, actorID, id string, req AdjustRequest) (CalculationResponse, error)
	Void(ctx context.Context, actorID, id string, req ReasonRequest) (CalculationResponse, error)
	MarkPaid(ctx context.Context, actorID, id string, req MarkPaidRequest) (CalculationResponse, error)
	GetByID(ctx context.Context, id string) (CalculationResponse, error)
	List(ctx context.Context, filter ListFilter, page scope.Page) ([]CalculationResponse, int64, error)
}

type service struct {
	db          *sql.DB
	repo        Repository
	employees   employee.Repository
	plans       plan.Repository
	assignments AssignmentChecker
	engine      *Engine
	counter     counter.Repository
	outbox      kafka.OutboxRepository
	approvals   ApprovalCanceller
	now         func() time.Time
	logger      *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	employees employee.Repository,
	plans plan.Repository,
	assignments AssignmentChecker,
	engine *Engine,
	counterRepo counter.Repository,
	outbox kafka.OutboxRepository,
	approvals ApprovalCanceller,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("calculation.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("calculation.service")
	}
	return &service{
		db:          db,
		repo:        repo,
		employees:   employees,
		plans:       plans,
		assignments: assignments,
		engine:      engine,
		counter:     counterRepo,
		outbox:      outbox,
		approvals:   approvals,
		now:         time.Now,
		logger:      l,
	}
}

func (s *service) Calculate(ctx context.Context, actorID string, req CalculateRequest) (CalculationResponse, error) {
	s.logger.Debug("calculate incentive requested",
		zap.String("actor_id", actorID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("plan_id", req.PlanID),
	)

	actor, err := uuid.Parse(actorID)
	if err != nil {
		return CalculationResponse{}, calculationerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("calculate incentive begin tx failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	defer tx.Rollback()

	c, err := s.calculateOne(ctx, tx, actor, req)
	if err != nil {
		return CalculationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("calculate incentive commit failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	s.logger.Info("calculate incentive success",
		zap.String("calculation_id", c.ID.String()),
		zap.String("reference", c.ReferenceNumber),
		zap.String("status", string(c.Status)),
	)

	return mapToResponse(*c), nil
}

// BulkCalculate runs every item on its own savepoint inside one transaction,
// so a failing item is rolled back alone and reported while the rest commit
// together. Cancellation is checked between items: what finished is
// committed and the remaining items are reported as unprocessed.
func (s *service) BulkCalculate(ctx context.Context, actorID string, req BulkCalculateRequest) (BatchResult, error) {
	s.logger.Debug("bulk calculate requested",
		zap.String("actor_id", actorID),
		zap.Int("items", len(req.Items)),
	)

	actor, err := uuid.Parse(actorID)
	if err != nil {
		return BatchResult{}, calculationerrors.ErrInvalidActorID
	}

	// The transaction outlives ctx so finished items can still commit.
	txCtx := context.WithoutCancel(ctx)
	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		s.logger.Error("bulk calculate begin tx failed", zap.Error(err))
		return BatchResult{}, err
	}
	defer tx.Rollback()

	result := BatchResult{Items: []CalculationResponse{}, Errors: []BatchError{}}
	var interrupted error
	for i, item := range req.Items {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("bulk calculate interrupted", zap.Int("processed", i), zap.Error(err))
			for _, rest := range req.Items[i:] {
				result.Unprocessed = append(result.Unprocessed, rest.Key())
			}
			interrupted = err
			break
		}

		if _, err := tx.ExecContext(txCtx, "SAVEPOINT bulk_item"); err != nil {
			s.logger.Error("bulk calculate savepoint failed", zap.Error(err))
			return BatchResult{}, err
		}

		c, err := s.calculateOne(ctx, tx, actor, item)
		if err != nil {
			if _, rbErr := tx.ExecContext(txCtx, "ROLLBACK TO SAVEPOINT bulk_item"); rbErr != nil {
				s.logger.Error("bulk calculate rollback to savepoint failed", zap.Error(rbErr))
				return BatchResult{}, rbErr
			}
			result.FailureCount++
			result.Errors = append(result.Errors, BatchError{
				ID:      item.Key(),
				Code:    apperror.CodeOf(err),
				Message: apperror.MessageOf(err),
			})
			continue
		}

		if _, err := tx.ExecContext(txCtx, "RELEASE SAVEPOINT bulk_item"); err != nil {
			s.logger.Error("bulk calculate release savepoint failed", zap.Error(err))
			return BatchResult{}, err
		}
		result.SuccessCount++
		result.Items = append(result.Items, mapToResponse(*c))
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("bulk calculate commit failed", zap.Error(err))
		return BatchResult{}, err
	}
	s.logger.Info("bulk calculate finished",
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailureCount),
		zap.Int("unprocessed", len(result.Unprocessed)),
	)

	if interrupted != nil {
		return result, apperror.BatchInterrupted(interrupted, result.Unprocessed)
	}
	return result, nil
}

// Defer records a calculation whose actuals are not available yet. It is
// computed later through Recalculate.
func (s *service) Defer(ctx context.Context, actorID string, req DeferRequest) (CalculationResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return CalculationResponse{}, calculationerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("defer calculation begin tx failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	defer tx.Rollback()

	_, p, period, err := s.prepare(ctx, tx, req.EmployeeID, req.PlanID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return CalculationResponse{}, err
	}

	c, err := s.newCalculation(ctx, actor, req.EmployeeID, p, period, decimal.Zero)
	if err != nil {
		return CalculationResponse{}, err
	}
	c.Currency = valueobject.ZeroMoney(p.Currency).Currency()
	if err := c.Defer(req.Reason); err != nil {
		return CalculationResponse{}, err
	}

	if err := s.repo.WithTx(tx).Create(ctx, c); err != nil {
		s.logger.Error("defer calculation persist failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("defer calculation commit failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	s.logger.Info("defer calculation success", zap.String("calculation_id", c.ID.String()))

	return mapToResponse(*c), nil
}

func (s *service) Recalculate(ctx context.Context, actorID, id string, req RecalculateRequest) (CalculationResponse, error) {
	s.logger.Debug("recalculate requested", zap.String("calculation_id", id))

	if _, err := uuid.Parse(actorID); err != nil {
		return CalculationResponse{}, calculationerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return CalculationResponse{}, calculationerrors.ErrInvalidCalculationID
	}
	if (req.EligibleDays == nil) != (req.TotalDays == nil) {
		return CalculationResponse{}, calculationerrors.ErrInvalidProrataInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("recalculate begin tx failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	c, err := qtx.FindByID(ctx, id)
	if err != nil {
		return CalculationResponse{}, err
	}
	if !IsRecalculable(c.Status) {
		return CalculationResponse{}, &TransitionError{
			CalculationID: id,
			From:          c.Status,
			To:            StatusCalculated,
			Op:            "recalculate",
		}
	}

	emp, err := s.employees.WithTx(tx).FindByID(ctx, c.EmployeeID.String())
	if err != nil {
		return CalculationResponse{}, err
	}
	p, err := s.plans.WithTx(tx).FindByID(ctx, c.PlanID.String())
	if err != nil {
		return CalculationResponse{}, err
	}

	if req.ActualValue != nil {
		c.ActualValue = *req.ActualValue
	}
	c.TargetValue = p.TargetValue

	res, err := s.engine.Calculate(Input{
		Employee:    *emp,
		Plan:        *p,
		ActualValue: c.ActualValue,
		Period:      c.Period(),
	})
	if err != nil {
		s.logger.Warn("recalculate engine rejected input", zap.String("calculation_id", id), zap.Error(err))
		return CalculationResponse{}, err
	}

	if req.EligibleDays != nil && res.Eligible && !res.BelowThreshold {
		if res, err = overrideProrata(res, *p, *req.EligibleDays, *req.TotalDays); err != nil {
			return CalculationResponse{}, err
		}
	}

	if err := c.ApplyResult(res, slabID(*p, res)); err != nil {
		s.logger.Warn("recalculate transition rejected", zap.Error(err))
		return CalculationResponse{}, err
	}
	if err := qtx.Update(ctx, c); err != nil {
		s.logger.Error("recalculate persist failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	if err := s.emit(ctx, tx, c, events.CalculationCompleted, EventDetail{ActorID: actorID}); err != nil {
		return CalculationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("recalculate commit failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	s.logger.Info("recalculate success",
		zap.String("calculation_id", id),
		zap.String("status", string(c.Status)),
	)

	return mapToResponse(*c), nil
}

func (s *service) Adjust(ctx context.Context, actorID, id string, req AdjustRequest) (CalculationResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return CalculationResponse{}, calculationerrors.ErrInvalidActorID
	}
	return s.mutate(ctx, actorID, id, "adjust", func(tx *sql.Tx, c *Calculation) (string, error) {
		amount, err := valueobject.NewMoney(req.Amount, c.Currency)
		if err != nil {
			return "", calculationerrors.ErrInvalidAdjustment
		}
		return "", c.Adjust(amount, req.Reason, actor, s.now())
	})
}

func (s *service) Void(ctx context.Context, actorID, id string, req ReasonRequest) (CalculationResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return CalculationResponse{}, calculationerrors.ErrInvalidActorID
	}
	return s.mutate(ctx, actorID, id, "void", func(tx *sql.Tx, c *Calculation) (string, error) {
		awaitingApproval := c.Status == StatusPendingApproval
		if err := c.Void(req.Reason, actor, s.now()); err != nil {
			return "", err
		}
		if awaitingApproval {
			if _, err := s.approvals.CancelPending(ctx, tx, c.ID.String(), "calculation voided"); err != nil {
				return "", err
			}
		}
		return "", nil
	})
}

func (s *service) MarkPaid(ctx context.Context, actorID, id string, req MarkPaidRequest) (CalculationResponse, error) {
	if _, err := uuid.Parse(actorID); err != nil {
		return CalculationResponse{}, calculationerrors.ErrInvalidActorID
	}
	return s.mutate(ctx, actorID, id, "mark paid", func(tx *sql.Tx, c *Calculation) (string, error) {
		return events.CalculationPaid, c.MarkPaid(req.PaymentRef, s.now())
	})
}

func (s *service) GetByID(ctx context.Context, id string) (CalculationResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return CalculationResponse{}, calculationerrors.ErrInvalidCalculationID
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return CalculationResponse{}, err
	}
	return mapToResponse(*c), nil
}

func (s *service) List(ctx context.Context, filter ListFilter, page scope.Page) ([]CalculationResponse, int64, error) {
	filter.Status = strings.ToUpper(strings.TrimSpace(filter.Status))
	if filter.Status != "" && !IsKnownStatus(Status(filter.Status)) {
		return nil, 0, calculationerrors.ErrInvalidStatusFilter
	}
	items, total, err := s.repo.FindAll(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]CalculationResponse, 0, len(items))
	for _, c := range items {
		out = append(out, mapToResponse(c))
	}
	return out, total, nil
}

// mutate loads a calculation, applies fn and saves it in one transaction.
// A non-empty event type returned by fn is written to the outbox.
func (s *service) mutate(ctx context.Context, actorID, id, op string, fn func(tx *sql.Tx, c *Calculation) (string, error)) (CalculationResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return CalculationResponse{}, calculationerrors.ErrInvalidCalculationID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error(op+" calculation begin tx failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	c, err := qtx.FindByID(ctx, id)
	if err != nil {
		return CalculationResponse{}, err
	}

	eventType, err := fn(tx, c)
	if err != nil {
		s.logger.Warn(op+" calculation rejected",
			zap.String("calculation_id", id),
			zap.String("status", string(c.Status)),
			zap.Error(err),
		)
		return CalculationResponse{}, err
	}

	if err := qtx.Update(ctx, c); err != nil {
		s.logger.Error(op+" calculation persist failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	if eventType != "" {
		if err := s.emit(ctx, tx, c, eventType, EventDetail{ActorID: actorID}); err != nil {
			return CalculationResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error(op+" calculation commit failed", zap.Error(err))
		return CalculationResponse{}, err
	}
	s.logger.Info(op+" calculation success",
		zap.String("calculation_id", id),
		zap.String("status", string(c.Status)),
	)

	return mapToResponse(*c), nil
}

// calculateOne validates, computes and persists one calculation on tx.
func (s *service) calculateOne(ctx context.Context, tx *sql.Tx, actor uuid.UUID, req CalculateRequest) (*Calculation, error) {
	emp, p, period, err := s.prepare(ctx, tx, req.EmployeeID, req.PlanID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.Calculate(Input{
		Employee:    *emp,
		Plan:        *p,
		ActualValue: req.ActualValue,
		Period:      period,
	})
	if err != nil {
		s.logger.Warn("calculate incentive engine rejected input",
			zap.String("employee_id", req.EmployeeID),
			zap.String("plan_id", req.PlanID),
			zap.Error(err),
		)
		return nil, err
	}

	c, err := s.newCalculation(ctx, actor, req.EmployeeID, p, period, req.ActualValue)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyResult(res, slabID(*p, res)); err != nil {
		return nil, err
	}

	if err := s.repo.WithTx(tx).Create(ctx, c); err != nil {
		s.logger.Error("calculate incentive persist failed", zap.Error(err))
		return nil, err
	}
	if err := s.emit(ctx, tx, c, events.CalculationCompleted, EventDetail{ActorID: actor.String()}); err != nil {
		return nil, err
	}
	return c, nil
}

// prepare loads the employee and plan and enforces the enrolment and
// one-calculation-per-period rules.
func (s *service) prepare(ctx context.Context, tx *sql.Tx, employeeID, planID, start, end string) (*employee.Employee, *plan.Plan, valueobject.DateRange, error) {
	period, err := valueobject.ParseDateRange(start, end)
	if err != nil {
		return nil, nil, valueobject.DateRange{}, calculationerrors.ErrInvalidPeriod
	}

	emp, err := s.employees.WithTx(tx).FindByID(ctx, employeeID)
	if err != nil {
		return nil, nil, valueobject.DateRange{}, err
	}
	p, err := s.plans.WithTx(tx).FindByID(ctx, planID)
	if err != nil {
		return nil, nil, valueobject.DateRange{}, err
	}

	assigned, err := s.assignments.IsAssigned(ctx, employeeID, planID, period)
	if err != nil {
		return nil, nil, valueobject.DateRange{}, err
	}
	if !assigned {
		s.logger.Warn("calculation rejected, employee not assigned",
			zap.String("employee_id", employeeID),
			zap.String("plan_id", planID),
		)
		return nil, nil, valueobject.DateRange{}, calculationerrors.ErrEmployeeNotAssigned
	}

	exists, err := s.repo.WithTx(tx).ExistsActive(ctx, employeeID, planID, period.Start(), period.End())
	if err != nil {
		return nil, nil, valueobject.DateRange{}, err
	}
	if exists {
		return nil, nil, valueobject.DateRange{}, calculationerrors.ErrDuplicateCalculation
	}

	return emp, p, period, nil
}

func (s *service) newCalculation(ctx context.Context, actor uuid.UUID, employeeID string, p *plan.Plan, period valueobject.DateRange, actual decimal.Decimal) (*Calculation, error) {
	seq, err := s.counter.GetNextValue(ctx, referenceCounter)
	if err != nil {
		s.logger.Error("calculation reference number failed", zap.Error(err))
		return nil, err
	}
	empID, err := uuid.Parse(employeeID)
	if err != nil {
		return nil, fmt.Errorf("employee id %q: %w", employeeID, apperror.ErrInvalidInput)
	}
	return &Calculation{
		ID:              uuid.New(),
		ReferenceNumber: fmt.Sprintf("INC-%06d", seq),
		EmployeeID:      empID,
		PlanID:          p.ID,
		PeriodStart:     period.Start(),
		PeriodEnd:       period.End(),
		TargetValue:     p.TargetValue,
		ActualValue:     actual,
		ProrataFactor:   decimal.NewFromInt(100),
		Status:          StatusPending,
		CalculatedBy:    actor,
	}, nil
}

func (s *service) emit(ctx context.Context, tx *sql.Tx, c *Calculation, eventType string, detail EventDetail) error {
	evt, err := NewLifecycleEvent(ctx, c, eventType, detail, s.now())
	if err != nil {
		s.logger.Error("build calculation event failed", zap.Error(err))
		return err
	}
	if err := s.outbox.WithTx(tx).Create(ctx, evt); err != nil {
		s.logger.Error("persist calculation event failed",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// overrideProrata replaces the eligibility prorata with explicit day counts
// and re-applies the payout caps.
func overrideProrata(res Result, p plan.Plan, eligibleDays, totalDays int) (Result, error) {
	net, err := ApplyProrata(res.Gross, eligibleDays, totalDays)
	if err != nil {
		return Result{}, err
	}
	res.ProrataFactor = valueobject.PercentageOf(decimal.NewFromInt(int64(eligibleDays)), decimal.NewFromInt(int64(totalDays)))
	res.Prorated = eligibleDays < totalDays
	res.Net, res.Capped = ApplyCap(net, p)
	res.Message = describe(res)
	return res, nil
}

func slabID(p plan.Plan, res Result) *uuid.UUID {
	if res.AppliedSlab == nil {
		return nil
	}
	return p.SlabIDForOrder(res.AppliedSlab.Order)
}

func mapToResponse(c Calculation) CalculationResponse {
	resp := CalculationResponse{
		ID:                c.ID.String(),
		ReferenceNumber:   c.ReferenceNumber,
		EmployeeID:        c.EmployeeID.String(),
		PlanID:            c.PlanID.String(),
		PeriodStart:       c.PeriodStart.Format(valueobject.DateLayout),
		PeriodEnd:         c.PeriodEnd.Format(valueobject.DateLayout),
		TargetValue:       c.TargetValue,
		ActualValue:       c.ActualValue,
		Achievement:       c.Achievement,
		ProrataFactor:     c.ProrataFactor,
		GrossAmount:       c.GrossAmount,
		NetAmount:         c.NetAmount,
		Currency:          c.Currency,
		Message:           c.Message,
		Status:            string(c.Status),
		IsAdjusted:        c.IsAdjusted,
		OriginalNetAmount: c.OriginalNetAmount,
		AdjustmentReason:  c.AdjustmentReason,
		RejectionReason:   c.RejectionReason,
		PaymentRef:        c.PaymentRef,
		VoidReason:        c.VoidReason,
		DeferReason:       c.DeferReason,
		Version:           c.Version,
	}
	if c.AppliedSlabID != nil {
		id := c.AppliedSlabID.String()
		resp.AppliedSlabID = &id
	}
	return resp
}
