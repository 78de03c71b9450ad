package assignment

import (
	"context"
	"database/sql"
	"time"

	assignmenterrors "go-incentive/internal/assignment/errors"
	"go-incentive/internal/employee"
	"go-incentive/internal/plan"
	"go-incentive/internal/valueobject"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=assignment_service.go -destination=mock/assignment_service_mock.go -package=mock
type Service interface {
	Assign(ctx context.Context, actorID string, req AssignPlanRequest) (AssignmentResponse, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]AssignmentResponse, error)
	Remove(ctx context.Context, actorID, id string) (AssignmentResponse, error)
	IsAssigned(ctx context.Context, employeeID, planID string, period valueobject.DateRange) (bool, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	employees employee.Repository
	plans     plan.Repository
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(db *sql.DB, repo Repository, employees employee.Repository, plans plan.Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("assignment.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("assignment.service")
	}
	return &service{db: db, repo: repo, employees: employees, plans: plans, now: time.Now, logger: l}
}

func (s *service) Assign(ctx context.Context, actorID string, req AssignPlanRequest) (AssignmentResponse, error) {
	s.logger.Debug("assign plan requested",
		zap.String("actor_id", actorID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("plan_id", req.PlanID),
	)

	assignedBy, err := uuid.Parse(actorID)
	if err != nil {
		return AssignmentResponse{}, assignmenterrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("assign plan begin tx failed", zap.Error(err))
		return AssignmentResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	emp, err := s.employees.WithTx(tx).FindByID(ctx, req.EmployeeID)
	if err != nil {
		return AssignmentResponse{}, err
	}
	p, err := s.plans.WithTx(tx).FindByID(ctx, req.PlanID)
	if err != nil {
		return AssignmentResponse{}, err
	}
	if p.Status != plan.StatusDraft && p.Status != plan.StatusActive {
		return AssignmentResponse{}, assignmenterrors.ErrPlanNotAssignable
	}

	planPeriod, err := p.Period()
	if err != nil {
		return AssignmentResponse{}, assignmenterrors.ErrOutsidePlanPeriod
	}
	window, err := resolveWindow(req, planPeriod)
	if err != nil {
		s.logger.Warn("assign plan validation failed", zap.Error(err))
		return AssignmentResponse{}, err
	}

	overlap, err := qtx.HasOverlappingPeriod(ctx, req.EmployeeID, req.PlanID, window.Start(), window.End(), nil)
	if err != nil {
		s.logger.Error("assign plan overlap check failed", zap.Error(err))
		return AssignmentResponse{}, err
	}
	if overlap {
		s.logger.Warn("assign plan overlap detected",
			zap.String("employee_id", req.EmployeeID),
			zap.String("plan_id", req.PlanID),
			zap.String("period", window.String()),
		)
		return AssignmentResponse{}, assignmenterrors.ErrAssignmentOverlap
	}

	a := &Assignment{
		ID:            uuid.New(),
		EmployeeID:    emp.ID,
		PlanID:        p.ID,
		EffectiveFrom: window.Start(),
		EffectiveTo:   window.End(),
		Status:        StatusActive,
		AssignedBy:    assignedBy,
	}
	if err := qtx.Create(ctx, a); err != nil {
		s.logger.Error("assign plan persist failed", zap.Error(err))
		return AssignmentResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("assign plan commit failed", zap.Error(err))
		return AssignmentResponse{}, err
	}
	s.logger.Info("assign plan success",
		zap.String("assignment_id", a.ID.String()),
		zap.String("employee_id", req.EmployeeID),
		zap.String("plan_id", req.PlanID),
	)

	return mapToResponse(*a), nil
}

func (s *service) ListByEmployee(ctx context.Context, employeeID string) ([]AssignmentResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, assignmenterrors.ErrInvalidAssignmentID
	}
	items, err := s.repo.FindByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	out := make([]AssignmentResponse, len(items))
	for i, a := range items {
		out[i] = mapToResponse(a)
	}
	return out, nil
}

func (s *service) Remove(ctx context.Context, actorID, id string) (AssignmentResponse, error) {
	removedBy, err := uuid.Parse(actorID)
	if err != nil {
		return AssignmentResponse{}, assignmenterrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return AssignmentResponse{}, assignmenterrors.ErrInvalidAssignmentID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("remove assignment begin tx failed", zap.Error(err))
		return AssignmentResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	a, err := qtx.FindByID(ctx, id)
	if err != nil {
		return AssignmentResponse{}, err
	}
	if a.Status == StatusRemoved {
		return AssignmentResponse{}, assignmenterrors.ErrAlreadyRemoved
	}

	now := s.now().UTC()
	a.Status = StatusRemoved
	a.RemovedBy = &removedBy
	a.RemovedAt = &now

	if err := qtx.Update(ctx, a); err != nil {
		s.logger.Error("remove assignment persist failed", zap.Error(err))
		return AssignmentResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("remove assignment commit failed", zap.Error(err))
		return AssignmentResponse{}, err
	}

	return mapToResponse(*a), nil
}

func (s *service) IsAssigned(ctx context.Context, employeeID, planID string, period valueobject.DateRange) (bool, error) {
	return s.repo.HasOverlappingPeriod(ctx, employeeID, planID, period.Start(), period.End(), nil)
}

// resolveWindow defaults missing dates to the plan period and keeps the
// window inside it.
func resolveWindow(req AssignPlanRequest, planPeriod valueobject.DateRange) (valueobject.DateRange, error) {
	start, end := planPeriod.Start(), planPeriod.End()
	if req.EffectiveFrom != "" {
		t, err := time.Parse(valueobject.DateLayout, req.EffectiveFrom)
		if err != nil {
			return valueobject.DateRange{}, assignmenterrors.ErrInvalidDateFormat
		}
		start = t
	}
	if req.EffectiveTo != "" {
		t, err := time.Parse(valueobject.DateLayout, req.EffectiveTo)
		if err != nil {
			return valueobject.DateRange{}, assignmenterrors.ErrInvalidDateFormat
		}
		end = t
	}

	window, err := valueobject.NewDateRange(start, end)
	if err != nil {
		return valueobject.DateRange{}, assignmenterrors.ErrInvalidDateRange
	}
	if !planPeriod.ContainsRange(window) {
		return valueobject.DateRange{}, assignmenterrors.ErrOutsidePlanPeriod
	}
	return window, nil
}

func mapToResponse(a Assignment) AssignmentResponse {
	resp := AssignmentResponse{
		ID:            a.ID.String(),
		EmployeeID:    a.EmployeeID.String(),
		PlanID:        a.PlanID.String(),
		EffectiveFrom: a.EffectiveFrom.Format(valueobject.DateLayout),
		EffectiveTo:   a.EffectiveTo.Format(valueobject.DateLayout),
		TotalDays:     a.Period().TotalDays(),
		Status:        string(a.Status),
		AssignedBy:    a.AssignedBy.String(),
	}
	if a.RemovedAt != nil {
		v := a.RemovedAt.Format(time.RFC3339)
		resp.RemovedAt = &v
	}
	return resp
}
