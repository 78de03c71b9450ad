package approval

import (
	"time"

	"go-incentive/internal/config"
	"go-incentive/internal/valueobject"

	"github.com/shopspring/decimal"
)

// Requirement describes one approval tier.
type Requirement struct {
	Level           int              `json:"level"`
	LevelName       string           `json:"level_name"`
	SLAHours        int              `json:"sla_hours"`
	ThresholdAmount *decimal.Decimal `json:"threshold_amount,omitempty"`
}

type WorkflowOption func(*WorkflowService)

func WithClock(now func() time.Time) WorkflowOption {
	return func(w *WorkflowService) { w.now = now }
}

// WorkflowService maps amounts to approval tiers. Amounts are compared as raw
// numbers; tiers are not currency aware.
type WorkflowService struct {
	tiers []config.ApprovalTier
	grace time.Duration
	now   func() time.Time
}

func NewWorkflowService(cfg config.IncentiveConfig, opts ...WorkflowOption) *WorkflowService {
	w := &WorkflowService{tiers: cfg.ApprovalTiers, grace: cfg.ExpirationGrace, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// DetermineApprovalLevel returns the lowest tier whose ceiling covers amount.
func (w *WorkflowService) DetermineApprovalLevel(amount valueobject.Money) Requirement {
	for _, tier := range w.tiers {
		if tier.MaxAmount == nil || amount.Amount().LessThanOrEqual(*tier.MaxAmount) {
			return toRequirement(tier)
		}
	}
	return toRequirement(w.tiers[len(w.tiers)-1])
}

// RequiresNextLevelApproval is true when amount needs a tier above currentLevel.
func (w *WorkflowService) RequiresNextLevelApproval(amount valueobject.Money, currentLevel int) bool {
	return w.DetermineApprovalLevel(amount).Level > currentLevel
}

// RequirementForLevel clamps level into the configured tiers.
func (w *WorkflowService) RequirementForLevel(level int) Requirement {
	switch {
	case level < 1:
		level = 1
	case level > len(w.tiers):
		level = len(w.tiers)
	}
	return toRequirement(w.tiers[level-1])
}

func (w *WorkflowService) CalculateExpirationTime(level int) time.Time {
	return w.now().UTC().Add(time.Duration(w.RequirementForLevel(level).SLAHours) * time.Hour)
}

func (w *WorkflowService) TopLevel() int {
	return len(w.tiers)
}

// ExpirationCutoff is the latest expiry a pending approval may have before
// the expiration sweep closes it.
func (w *WorkflowService) ExpirationCutoff() time.Time {
	return w.now().UTC().Add(-w.grace)
}

func (w *WorkflowService) Now() time.Time {
	return w.now()
}

func toRequirement(t config.ApprovalTier) Requirement {
	return Requirement{
		Level:           t.Level,
		LevelName:       t.Name,
		SLAHours:        int(t.SLA / time.Hour),
		ThresholdAmount: t.MaxAmount,
	}
}
