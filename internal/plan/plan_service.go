package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	planerrors "go-incentive/internal/plan/errors"
	"go-incentive/internal/shared/scope"
	"go-incentive/internal/valueobject"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	ActiveOptionsKey = "incentive_plans:active_options"
	activeOptionsTTL = 30 * time.Minute
)

//go:generate mockgen -source=plan_service.go -destination=mock/plan_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actorID string, req CreatePlanRequest) (PlanResponse, error)
	Update(ctx context.Context, id string, req UpdatePlanRequest) (PlanResponse, error)
	GetByID(ctx context.Context, id string) (PlanResponse, error)
	List(ctx context.Context, status string, page scope.Page) ([]PlanResponse, int64, error)
	Validate(ctx context.Context, id string) (ValidationResult, error)
	Activate(ctx context.Context, id string) (PlanResponse, error)
	Suspend(ctx context.Context, id string) (PlanResponse, error)
	Reactivate(ctx context.Context, id string) (PlanResponse, error)
	Cancel(ctx context.Context, id string) (PlanResponse, error)
	Expire(ctx context.Context, id string) (PlanResponse, error)
	GetActiveOptions(ctx context.Context) ([]PlanOption, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	validator *ValidationService
	rdb       *redis.Client
	sf        *singleflight.Group
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(db *sql.DB, repo Repository, validator *ValidationService, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("plan.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("plan.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		validator: validator,
		rdb:       rdb,
		sf:        &singleflight.Group{},
		now:       validator.now,
		logger:    l,
	}
}

func (s *service) Create(ctx context.Context, actorID string, req CreatePlanRequest) (PlanResponse, error) {
	s.logger.Debug("create plan requested",
		zap.String("actor_id", actorID),
		zap.String("code", req.Code),
		zap.String("plan_type", req.PlanType),
	)

	createdBy, err := uuid.Parse(actorID)
	if err != nil {
		return PlanResponse{}, planerrors.ErrInvalidActorID
	}

	p := &Plan{ID: uuid.New(), Status: StatusDraft, CreatedBy: createdBy}
	if err := applyRequest(p, req); err != nil {
		s.logger.Warn("create plan validation failed", zap.Error(err))
		return PlanResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create plan begin tx failed", zap.Error(err))
		return PlanResponse{}, err
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).Create(ctx, p); err != nil {
		s.logger.Error("create plan persist failed", zap.Error(err))
		return PlanResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create plan commit failed", zap.Error(err))
		return PlanResponse{}, err
	}
	s.logger.Info("create plan success",
		zap.String("plan_id", p.ID.String()),
		zap.String("code", p.Code),
	)

	return mapToResponse(*p), nil
}

func (s *service) Update(ctx context.Context, id string, req UpdatePlanRequest) (PlanResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return PlanResponse{}, planerrors.ErrInvalidPlanID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update plan begin tx failed", zap.Error(err))
		return PlanResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	p, err := qtx.FindByID(ctx, id)
	if err != nil {
		return PlanResponse{}, err
	}
	if p.Status != StatusDraft {
		s.logger.Warn("update plan rejected, not draft",
			zap.String("plan_id", id),
			zap.String("status", string(p.Status)),
		)
		return PlanResponse{}, planerrors.ErrOnlyDraftEditable
	}

	if err := applyRequest(p, req); err != nil {
		return PlanResponse{}, err
	}

	if err := qtx.Update(ctx, p); err != nil {
		s.logger.Error("update plan persist failed", zap.Error(err))
		return PlanResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update plan commit failed", zap.Error(err))
		return PlanResponse{}, err
	}

	return mapToResponse(*p), nil
}

func (s *service) GetByID(ctx context.Context, id string) (PlanResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return PlanResponse{}, planerrors.ErrInvalidPlanID
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return PlanResponse{}, err
	}
	return mapToResponse(*p), nil
}

func (s *service) List(ctx context.Context, status string, page scope.Page) ([]PlanResponse, int64, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !isKnownStatus(Status(status)) {
		return nil, 0, planerrors.ErrInvalidStatusFilter
	}
	plans, total, err := s.repo.FindAll(ctx, status, page)
	if err != nil {
		return nil, 0, err
	}
	return mapToListResponse(plans), total, nil
}

func (s *service) Validate(ctx context.Context, id string) (ValidationResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ValidationResult{}, planerrors.ErrInvalidPlanID
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ValidationResult{}, err
	}
	return s.validator.ValidatePlan(*p), nil
}

func (s *service) Activate(ctx context.Context, id string) (PlanResponse, error) {
	return s.transition(ctx, id, StatusActive)
}

func (s *service) Suspend(ctx context.Context, id string) (PlanResponse, error) {
	return s.transition(ctx, id, StatusSuspended)
}

// Reactivate re-runs validation like Activate, since the configured rules may have changed.
func (s *service) Reactivate(ctx context.Context, id string) (PlanResponse, error) {
	return s.transition(ctx, id, StatusActive)
}

func (s *service) Cancel(ctx context.Context, id string) (PlanResponse, error) {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *service) Expire(ctx context.Context, id string) (PlanResponse, error) {
	return s.transition(ctx, id, StatusExpired)
}

func (s *service) transition(ctx context.Context, id string, to Status) (PlanResponse, error) {
	s.logger.Debug("plan status change requested",
		zap.String("plan_id", id),
		zap.String("target_status", string(to)),
	)

	if _, err := uuid.Parse(id); err != nil {
		return PlanResponse{}, planerrors.ErrInvalidPlanID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("plan status change begin tx failed", zap.Error(err))
		return PlanResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	p, err := qtx.FindByID(ctx, id)
	if err != nil {
		return PlanResponse{}, err
	}

	if to == StatusActive && CanTransition(p.Status, to) {
		result := s.validator.ValidatePlan(*p)
		if !result.CanBeActivated {
			s.logger.Warn("plan activation blocked by validation",
				zap.String("plan_id", id),
				zap.Int("errors", len(result.Errors)),
			)
			return PlanResponse{}, &ActivationError{PlanID: id, Result: result}
		}
	}

	from := p.Status
	if err := p.TransitionTo(to, s.now()); err != nil {
		s.logger.Warn("plan status change rejected", zap.Error(err))
		return PlanResponse{}, err
	}

	if err := qtx.UpdateStatus(ctx, p); err != nil {
		s.logger.Error("plan status change persist failed", zap.Error(err))
		return PlanResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("plan status change commit failed", zap.Error(err))
		return PlanResponse{}, err
	}

	s.invalidateActiveOptions(ctx)
	s.logger.Info("plan status changed",
		zap.String("plan_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	return mapToResponse(*p), nil
}

func (s *service) GetActiveOptions(ctx context.Context) ([]PlanOption, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, ActiveOptionsKey).Result()
		if err == nil {
			var resp []PlanOption
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(ActiveOptionsKey, func() (interface{}, error) {
		plans, err := s.repo.FindActive(ctx)
		if err != nil {
			return nil, err
		}

		resp := make([]PlanOption, len(plans))
		for i, p := range plans {
			resp[i] = PlanOption{
				ID:            p.ID.String(),
				Code:          p.Code,
				Name:          p.Name,
				PlanType:      string(p.PlanType),
				EffectiveFrom: p.EffectiveFrom.Format(valueobject.DateLayout),
				EffectiveTo:   p.EffectiveTo.Format(valueobject.DateLayout),
			}
		}

		if s.rdb != nil {
			if data, err := json.Marshal(resp); err == nil {
				if err := s.rdb.Set(ctx, ActiveOptionsKey, data, activeOptionsTTL).Err(); err != nil {
					s.logger.Warn("cache active plan options failed", zap.Error(err))
				}
			}
		}

		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]PlanOption), nil
}

func (s *service) invalidateActiveOptions(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, ActiveOptionsKey).Err(); err != nil {
		s.logger.Error("invalidate active plan options failed",
			zap.String("key", ActiveOptionsKey),
			zap.Error(err),
		)
	}
}

func isKnownStatus(st Status) bool {
	switch st {
	case StatusDraft, StatusActive, StatusSuspended, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

func applyRequest(p *Plan, req CreatePlanRequest) error {
	from, err := time.Parse(valueobject.DateLayout, req.EffectiveFrom)
	if err != nil {
		return planerrors.ErrInvalidDateFormat
	}
	to, err := time.Parse(valueobject.DateLayout, req.EffectiveTo)
	if err != nil {
		return planerrors.ErrInvalidDateFormat
	}

	p.Code = strings.TrimSpace(req.Code)
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.PlanType = PlanType(req.PlanType)
	p.PaymentFrequency = PaymentFrequency(req.PaymentFrequency)
	p.EffectiveFrom = from
	p.EffectiveTo = to
	p.TargetValue = req.TargetValue
	p.MinimumThreshold = req.MinimumThreshold
	p.AchievementKind = valueobject.AchievementKind(req.AchievementKind)
	p.TargetUnit = req.TargetUnit
	p.Currency = strings.ToUpper(req.Currency)
	p.MaximumPayout = req.MaximumPayout
	p.MinimumPayout = req.MinimumPayout
	p.PayoutRate = req.PayoutRate
	p.RequiresApproval = req.RequiresApproval
	p.ApprovalLevels = req.ApprovalLevels
	p.MinimumTenureDays = req.MinimumTenureDays

	p.Slabs = make([]Slab, len(req.Slabs))
	for i, sl := range req.Slabs {
		p.Slabs[i] = Slab{
			ID:             uuid.New(),
			PlanID:         p.ID,
			FromPercentage: sl.FromPercentage,
			ToPercentage:   sl.ToPercentage,
			PayoutRate:     sl.PayoutRate,
			FixedAmount:    sl.FixedAmount,
			SortOrder:      sl.SortOrder,
		}
	}
	return nil
}

func mapToResponse(p Plan) PlanResponse {
	resp := PlanResponse{
		ID:                p.ID.String(),
		Code:              p.Code,
		Name:              p.Name,
		Description:       p.Description,
		PlanType:          string(p.PlanType),
		PaymentFrequency:  string(p.PaymentFrequency),
		EffectiveFrom:     p.EffectiveFrom.Format(valueobject.DateLayout),
		EffectiveTo:       p.EffectiveTo.Format(valueobject.DateLayout),
		TargetValue:       p.TargetValue,
		MinimumThreshold:  p.MinimumThreshold,
		AchievementKind:   string(p.AchievementKind),
		TargetUnit:        p.TargetUnit,
		Currency:          p.Currency,
		MaximumPayout:     p.MaximumPayout,
		MinimumPayout:     p.MinimumPayout,
		PayoutRate:        p.PayoutRate,
		RequiresApproval:  p.RequiresApproval,
		ApprovalLevels:    p.ApprovalLevels,
		MinimumTenureDays: p.MinimumTenureDays,
		Status:            string(p.Status),
		CreatedBy:         p.CreatedBy.String(),
		Slabs:             make([]SlabResponse, len(p.Slabs)),
	}
	if p.ActivatedAt != nil {
		v := p.ActivatedAt.Format(time.RFC3339)
		resp.ActivatedAt = &v
	}
	for i, sl := range p.Slabs {
		resp.Slabs[i] = SlabResponse{
			ID:             sl.ID.String(),
			FromPercentage: sl.FromPercentage,
			ToPercentage:   sl.ToPercentage,
			PayoutRate:     sl.PayoutRate,
			FixedAmount:    sl.FixedAmount,
			SortOrder:      sl.SortOrder,
		}
	}
	return resp
}

func mapToListResponse(plans []Plan) []PlanResponse {
	res := make([]PlanResponse, len(plans))
	for i, p := range plans {
		res[i] = mapToResponse(p)
	}
	return res
}
