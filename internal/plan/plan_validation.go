package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go-incentive/internal/config"
	"go-incentive/internal/valueobject"

	"github.com/shopspring/decimal"
)

const (
	IssueRequiredCode           = "REQUIRED_CODE"
	IssueRequiredName           = "REQUIRED_NAME"
	IssueInvalidPlanType        = "INVALID_PLAN_TYPE"
	IssueUnsupportedPlanType    = "UNSUPPORTED_PLAN_TYPE"
	IssueInvalidCurrency        = "INVALID_CURRENCY"
	IssueInvalidPeriod          = "INVALID_PERIOD"
	IssuePeriodInPast           = "PERIOD_IN_PAST"
	IssueShortPeriod            = "SHORT_PERIOD"
	IssueInvalidTarget          = "INVALID_TARGET"
	IssueNegativeThreshold      = "NEGATIVE_THRESHOLD"
	IssueThresholdExceedsTarget = "THRESHOLD_EXCEEDS_TARGET"
	IssueDifficultThreshold     = "DIFFICULT_THRESHOLD"
	IssueNegativePayoutLimit    = "NEGATIVE_PAYOUT_LIMIT"
	IssueInvalidPayoutLimits    = "INVALID_PAYOUT_LIMITS"
	IssueNoSlabs                = "NO_SLABS"
	IssueInvalidSlabRange       = "INVALID_SLAB_RANGE"
	IssueDuplicateSlabOrder     = "DUPLICATE_SLAB_ORDER"
	IssueOverlappingSlabs       = "OVERLAPPING_SLABS"
	IssueSlabGap                = "SLAB_GAP"
	IssueFirstSlabAboveMinimum  = "FIRST_SLAB_ABOVE_THRESHOLD"
	IssueZeroSlabPayout         = "ZERO_SLAB_PAYOUT"
	IssueIncompleteCoverage     = "INCOMPLETE_SLAB_COVERAGE"
	IssueInvalidApprovalLevels  = "INVALID_APPROVAL_LEVELS"
)

type Issue struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResult struct {
	IsValid        bool    `json:"is_valid"`
	CanBeActivated bool    `json:"can_be_activated"`
	Errors         []Issue `json:"errors"`
	Warnings       []Issue `json:"warnings"`
}

func (r *ValidationResult) addError(code, field, msg string) {
	r.Errors = append(r.Errors, Issue{Code: code, Field: field, Message: msg})
}

func (r *ValidationResult) addWarning(code, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Field: field, Message: msg})
}

// HasError reports whether an error with code was raised.
func (r ValidationResult) HasError(code string) bool {
	for _, i := range r.Errors {
		if i.Code == code {
			return true
		}
	}
	return false
}

func (r ValidationResult) HasWarning(code string) bool {
	for _, i := range r.Warnings {
		if i.Code == code {
			return true
		}
	}
	return false
}

var knownTypes = map[PlanType]bool{
	TypeFixed: true, TypePercentageOfSalary: true, TypeSlabBased: true, TypeCommission: true,
	TypePoolBased: true, TypeHybrid: true, TypeMBO: true, TypeSpotBonus: true,
}

// ValidationService checks a plan's configuration before activation.
type ValidationService struct {
	cfg         config.IncentiveConfig
	now         func() time.Time
	isSupported func(PlanType) bool
}

type ValidationOption func(*ValidationService)

// WithClock overrides time.Now, used for the "period already ended" check.
func WithClock(now func() time.Time) ValidationOption {
	return func(s *ValidationService) { s.now = now }
}

// WithSupportedTypes makes plan types without a calculation formula a blocking error.
func WithSupportedTypes(fn func(PlanType) bool) ValidationOption {
	return func(s *ValidationService) { s.isSupported = fn }
}

func NewValidationService(cfg config.IncentiveConfig, opts ...ValidationOption) *ValidationService {
	s := &ValidationService{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ValidationService) ValidatePlan(p Plan) ValidationResult {
	res := ValidationResult{Errors: []Issue{}, Warnings: []Issue{}}

	s.validateRequired(p, &res)
	s.validatePeriod(p, &res)
	s.validateTarget(p, &res)
	s.validatePayoutLimits(p, &res)
	if p.PlanType == TypeSlabBased {
		s.validateSlabs(p, &res)
	}
	s.validateApproval(p, &res)

	res.IsValid = len(res.Errors) == 0
	res.CanBeActivated = res.IsValid
	return res
}

func (s *ValidationService) validateRequired(p Plan, res *ValidationResult) {
	if strings.TrimSpace(p.Code) == "" {
		res.addError(IssueRequiredCode, "code", "plan code is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		res.addError(IssueRequiredName, "name", "plan name is required")
	}
	if !knownTypes[p.PlanType] {
		res.addError(IssueInvalidPlanType, "plan_type", fmt.Sprintf("unknown plan type %q", p.PlanType))
	} else if s.isSupported != nil && !s.isSupported(p.PlanType) {
		res.addError(IssueUnsupportedPlanType, "plan_type", fmt.Sprintf("plan type %s has no calculation formula", p.PlanType))
	}
	if _, err := valueobject.NewMoney(decimal.Zero, p.Currency); err != nil {
		res.addError(IssueInvalidCurrency, "currency", "currency must be a 3-letter code")
	}
}

func (s *ValidationService) validatePeriod(p Plan, res *ValidationResult) {
	from, to := valueobject.Day(p.EffectiveFrom), valueobject.Day(p.EffectiveTo)
	if !to.After(from) {
		res.addError(IssueInvalidPeriod, "effective_to", "effective end date must be after the start date")
		return
	}
	if to.Before(valueobject.Day(s.now())) {
		res.addError(IssuePeriodInPast, "effective_to", "effective end date is already in the past")
	}
	if days := valueobject.DaysBetween(from, to) + 1; days < s.cfg.MinimumPlanPeriodDays {
		res.addWarning(IssueShortPeriod, "effective_to",
			fmt.Sprintf("plan period is %d days, shorter than %d", days, s.cfg.MinimumPlanPeriodDays))
	}
}

func (s *ValidationService) validateTarget(p Plan, res *ValidationResult) {
	if !p.TargetValue.IsPositive() {
		res.addError(IssueInvalidTarget, "target_value", "target value must be greater than zero")
		return
	}
	if p.MinimumThreshold.IsNegative() {
		res.addError(IssueNegativeThreshold, "minimum_threshold", "minimum threshold cannot be negative")
		return
	}
	if p.MinimumThreshold.GreaterThan(p.TargetValue) {
		res.addError(IssueThresholdExceedsTarget, "minimum_threshold", "minimum threshold cannot exceed the target value")
		return
	}
	if p.MinimumThreshold.GreaterThan(p.TargetValue.Mul(s.cfg.DifficultThresholdRatio)) {
		res.addWarning(IssueDifficultThreshold, "minimum_threshold",
			"minimum threshold is above "+s.cfg.DifficultThresholdRatio.Shift(2).String()+"% of target, difficult to achieve")
	}
}

func (s *ValidationService) validatePayoutLimits(p Plan, res *ValidationResult) {
	if p.MaximumPayout != nil && p.MaximumPayout.IsNegative() {
		res.addError(IssueNegativePayoutLimit, "maximum_payout", "maximum payout cannot be negative")
	}
	if p.MinimumPayout != nil && p.MinimumPayout.IsNegative() {
		res.addError(IssueNegativePayoutLimit, "minimum_payout", "minimum payout cannot be negative")
	}
	if p.MaximumPayout != nil && p.MinimumPayout != nil && p.MaximumPayout.LessThan(*p.MinimumPayout) {
		res.addError(IssueInvalidPayoutLimits, "maximum_payout", "maximum payout must be greater than or equal to minimum payout")
	}
}

func (s *ValidationService) validateSlabs(p Plan, res *ValidationResult) {
	if len(p.Slabs) == 0 {
		res.addError(IssueNoSlabs, "slabs", "slab based plans require at least one slab")
		return
	}

	seenOrder := make(map[int]bool, len(p.Slabs))
	for _, sl := range p.Slabs {
		if seenOrder[sl.SortOrder] {
			res.addError(IssueDuplicateSlabOrder, "slabs", fmt.Sprintf("slab order %d is used more than once", sl.SortOrder))
		}
		seenOrder[sl.SortOrder] = true

		if sl.FromPercentage.GreaterThan(sl.ToPercentage) {
			res.addError(IssueInvalidSlabRange, "slabs",
				fmt.Sprintf("slab %d starts at %s%% after it ends at %s%%", sl.SortOrder, sl.FromPercentage, sl.ToPercentage))
		}
		hasFixed := sl.FixedAmount != nil && sl.FixedAmount.IsPositive()
		if !sl.PayoutRate.IsPositive() && !hasFixed {
			res.addError(IssueZeroSlabPayout, "slabs", fmt.Sprintf("slab %d has no payout", sl.SortOrder))
		}
	}

	ranges := p.SlabRanges()
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].Overlaps(ranges[j]) {
				res.addError(IssueOverlappingSlabs, "slabs",
					fmt.Sprintf("slab %d overlaps slab %d", ranges[i].Order, ranges[j].Order))
			}
		}
	}

	byFrom := make([]valueobject.SlabRange, len(ranges))
	copy(byFrom, ranges)
	sort.SliceStable(byFrom, func(i, j int) bool { return byFrom[i].From.LessThan(byFrom[j].From) })

	for i := 1; i < len(byFrom); i++ {
		gap := byFrom[i].From.Sub(byFrom[i-1].To)
		if gap.GreaterThan(s.cfg.SlabGapTolerance) {
			res.addError(IssueSlabGap, "slabs",
				fmt.Sprintf("gap between %s%% and %s%%", byFrom[i-1].To, byFrom[i].From))
		}
	}

	threshold := p.Target().ThresholdPercentage().Value()
	if first := byFrom[0]; first.From.GreaterThan(threshold.Add(decimal.NewFromInt(1))) {
		res.addError(IssueFirstSlabAboveMinimum, "slabs",
			fmt.Sprintf("first slab starts at %s%%, above the minimum threshold of %s%%", first.From, threshold.StringFixed(2)))
	}

	maxTo := byFrom[0].To
	for _, r := range byFrom[1:] {
		if r.To.GreaterThan(maxTo) {
			maxTo = r.To
		}
	}
	if maxTo.LessThan(decimal.NewFromInt(100)) {
		res.addWarning(IssueIncompleteCoverage, "slabs", "slabs do not cover achievement up to 100%")
	}
}

func (s *ValidationService) validateApproval(p Plan, res *ValidationResult) {
	if !p.RequiresApproval {
		return
	}
	if p.ApprovalLevels < 1 || p.ApprovalLevels > s.cfg.MaxApprovalLevels {
		res.addError(IssueInvalidApprovalLevels, "approval_levels",
			fmt.Sprintf("approval levels must be between 1 and %d", s.cfg.MaxApprovalLevels))
	}
}
