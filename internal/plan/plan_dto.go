package plan

import "github.com/shopspring/decimal"

type SlabRequest struct {
	FromPercentage decimal.Decimal  `json:"from_percentage"`
	ToPercentage   decimal.Decimal  `json:"to_percentage"`
	PayoutRate     decimal.Decimal  `json:"payout_rate"`
	FixedAmount    *decimal.Decimal `json:"fixed_amount"`
	SortOrder      int              `json:"sort_order" binding:"gte=0"`
}

type CreatePlanRequest struct {
	Code              string           `json:"code" binding:"required,max=50"`
	Name              string           `json:"name" binding:"required,max=150"`
	Description       string           `json:"description"`
	PlanType          string           `json:"plan_type" binding:"required,oneof=FIXED PERCENTAGE_OF_SALARY SLAB_BASED COMMISSION POOL_BASED HYBRID MBO SPOT_BONUS"`
	PaymentFrequency  string           `json:"payment_frequency" binding:"required,oneof=MONTHLY QUARTERLY HALF_YEARLY ANNUAL ONE_TIME"`
	EffectiveFrom     string           `json:"effective_from" binding:"required"`
	EffectiveTo       string           `json:"effective_to" binding:"required"`
	TargetValue       decimal.Decimal  `json:"target_value"`
	MinimumThreshold  decimal.Decimal  `json:"minimum_threshold"`
	AchievementKind   string           `json:"achievement_kind" binding:"required,oneof=REVENUE UNITS RETENTION_RATE NEW_ACCOUNTS MARGIN SCORE"`
	TargetUnit        string           `json:"target_unit"`
	Currency          string           `json:"currency" binding:"required,len=3"`
	MaximumPayout     *decimal.Decimal `json:"maximum_payout"`
	MinimumPayout     *decimal.Decimal `json:"minimum_payout"`
	PayoutRate        *decimal.Decimal `json:"payout_rate"`
	RequiresApproval  bool             `json:"requires_approval"`
	ApprovalLevels    int              `json:"approval_levels"`
	MinimumTenureDays *int             `json:"minimum_tenure_days" binding:"omitempty,gte=0"`
	Slabs             []SlabRequest    `json:"slabs" binding:"dive"`
}

type UpdatePlanRequest = CreatePlanRequest

type SlabResponse struct {
	ID             string           `json:"id"`
	FromPercentage decimal.Decimal  `json:"from_percentage"`
	ToPercentage   decimal.Decimal  `json:"to_percentage"`
	PayoutRate     decimal.Decimal  `json:"payout_rate"`
	FixedAmount    *decimal.Decimal `json:"fixed_amount,omitempty"`
	SortOrder      int              `json:"sort_order"`
}

type PlanResponse struct {
	ID                string           `json:"id"`
	Code              string           `json:"code"`
	Name              string           `json:"name"`
	Description       string           `json:"description,omitempty"`
	PlanType          string           `json:"plan_type"`
	PaymentFrequency  string           `json:"payment_frequency"`
	EffectiveFrom     string           `json:"effective_from"`
	EffectiveTo       string           `json:"effective_to"`
	TargetValue       decimal.Decimal  `json:"target_value"`
	MinimumThreshold  decimal.Decimal  `json:"minimum_threshold"`
	AchievementKind   string           `json:"achievement_kind"`
	TargetUnit        string           `json:"target_unit,omitempty"`
	Currency          string           `json:"currency"`
	MaximumPayout     *decimal.Decimal `json:"maximum_payout,omitempty"`
	MinimumPayout     *decimal.Decimal `json:"minimum_payout,omitempty"`
	PayoutRate        *decimal.Decimal `json:"payout_rate,omitempty"`
	RequiresApproval  bool             `json:"requires_approval"`
	ApprovalLevels    int              `json:"approval_levels"`
	MinimumTenureDays *int             `json:"minimum_tenure_days,omitempty"`
	Status            string           `json:"status"`
	CreatedBy         string           `json:"created_by"`
	ActivatedAt       *string          `json:"activated_at,omitempty"`
	Slabs             []SlabResponse   `json:"slabs"`
}

// PlanOption is the compact view used by assignment pickers.
type PlanOption struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	PlanType      string `json:"plan_type"`
	EffectiveFrom string `json:"effective_from"`
	EffectiveTo   string `json:"effective_to"`
}
