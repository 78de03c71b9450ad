package calculation

import (
	"fmt"

	calculationerrors "go-incentive/internal/calculation/errors"
	"go-incentive/internal/config"
	"go-incentive/internal/eligibility"
	"go-incentive/internal/employee"
	"go-incentive/internal/plan"
	"go-incentive/internal/valueobject"

	"github.com/shopspring/decimal"
)

const MessageBelowThreshold = "Below minimum threshold"

type Input struct {
	Employee    employee.Employee
	Plan        plan.Plan
	ActualValue decimal.Decimal
	Period      valueobject.DateRange
}

type Result struct {
	Success        bool
	Eligible       bool
	BelowThreshold bool
	Prorated       bool
	Capped         bool
	Gross          valueobject.Money
	Net            valueobject.Money
	Achievement    valueobject.Percentage
	ProrataFactor  valueobject.Percentage
	AppliedSlab    *valueobject.SlabRange
	Message        string
	Eligibility    eligibility.Result
}

// formula computes the gross incentive for one plan type.
type formula func(e *Engine, in Input, achievement valueobject.Percentage) (valueobject.Money, *valueobject.SlabRange)

var formulas = map[plan.PlanType]formula{
	plan.TypeFixed:              fixedBonus,
	plan.TypePercentageOfSalary: percentageOfSalary,
	plan.TypeSlabBased:          slabBased,
	plan.TypeCommission:         commission,
	plan.TypeMBO:                mbo,
}

// SupportsPlanType reports whether a plan type has a calculation formula.
func SupportsPlanType(t plan.PlanType) bool {
	_, ok := formulas[t]
	return ok
}

// Engine turns achievement figures into payable amounts. It is a pure
// function of its inputs and safe for concurrent use.
type Engine struct {
	cfg         config.IncentiveConfig
	eligibility *eligibility.Service
}

func NewEngine(cfg config.IncentiveConfig, elig *eligibility.Service) *Engine {
	return &Engine{cfg: cfg, eligibility: elig}
}

// Calculate runs eligibility, achievement, the plan-type formula, prorata and
// payout caps in that order. Gross is before prorata and caps; Net after.
func (e *Engine) Calculate(in Input) (Result, error) {
	currency := in.Plan.Currency
	zero := valueobject.ZeroMoney(currency)

	f, ok := formulas[in.Plan.PlanType]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", calculationerrors.ErrUnsupportedPlanType, in.Plan.PlanType)
	}
	if in.Employee.Salary().Currency() != zero.Currency() {
		return Result{}, fmt.Errorf("%w: salary in %s, plan in %s",
			calculationerrors.ErrSalaryCurrencyMismatch, in.Employee.Currency, currency)
	}

	res := Result{
		Gross:         zero,
		Net:           zero,
		Achievement:   valueobject.ZeroPercentage(),
		ProrataFactor: valueobject.ZeroPercentage(),
	}

	res.Eligibility = e.eligibility.CheckForPeriod(in.Employee, in.Plan, in.Period)
	if !res.Eligibility.IsEligible {
		res.Message = res.Eligibility.Reason
		return res, nil
	}
	res.Eligible = true
	res.ProrataFactor = res.Eligibility.ProrataFactor

	target := in.Plan.Target()
	res.Achievement = target.Achievement(in.ActualValue)

	if !target.MeetsMinimumThreshold(in.ActualValue) {
		res.Success = true
		res.BelowThreshold = true
		res.Message = MessageBelowThreshold
		return res, nil
	}

	gross, slab := f(e, in, res.Achievement)
	res.Gross = gross
	res.AppliedSlab = slab

	net := gross
	if !res.ProrataFactor.IsFull() {
		net = gross.Percent(res.ProrataFactor)
		res.Prorated = true
	}

	capped, changed := ApplyCap(net, in.Plan)
	res.Net = capped
	res.Capped = changed

	res.Success = true
	res.Message = describe(res)
	return res, nil
}

// ApplyProrata scales gross by eligibleDays/totalDays. Non-positive inputs or
// eligibleDays > totalDays are configuration errors.
func ApplyProrata(gross valueobject.Money, eligibleDays, totalDays int) (valueobject.Money, error) {
	if eligibleDays <= 0 || totalDays <= 0 || eligibleDays > totalDays {
		return valueobject.Money{}, fmt.Errorf("%w: eligible=%d total=%d",
			calculationerrors.ErrInvalidProrataInput, eligibleDays, totalDays)
	}
	factor := valueobject.PercentageOf(decimal.NewFromInt(int64(eligibleDays)), decimal.NewFromInt(int64(totalDays)))
	return gross.Percent(factor), nil
}

// ApplyCap clamps net into the plan's payout limits. A zero net is never
// raised to the minimum. Applying it twice gives the same amount.
func ApplyCap(net valueobject.Money, p plan.Plan) (valueobject.Money, bool) {
	if ceiling := p.MaxPayout(); ceiling != nil && net.GreaterThan(*ceiling) {
		return *ceiling, true
	}
	if floor := p.MinPayout(); floor != nil && net.IsPositive() && net.LessThan(*floor) {
		return *floor, true
	}
	return net, false
}

// FindSlab returns the slab containing achievement. Slabs are scanned by
// ascending order; when achievement sits on a shared boundary the upper
// slab, the one starting there, wins.
func FindSlab(slabs []valueobject.SlabRange, achievement valueobject.Percentage) *valueobject.SlabRange {
	var first *valueobject.SlabRange
	for i := range slabs {
		s := slabs[i]
		if !s.Contains(achievement) {
			continue
		}
		if s.From.Equal(achievement.Value()) {
			return &s
		}
		if first == nil {
			first = &s
		}
	}
	return first
}

func (e *Engine) rate(p plan.Plan, fallback decimal.Decimal) decimal.Decimal {
	if p.PayoutRate != nil {
		return *p.PayoutRate
	}
	return fallback
}

func fixedBonus(e *Engine, in Input, _ valueobject.Percentage) (valueobject.Money, *valueobject.SlabRange) {
	return in.Employee.Salary().Mul(e.rate(in.Plan, e.cfg.FixedBonusRate)), nil
}

func percentageOfSalary(e *Engine, in Input, achievement valueobject.Percentage) (valueobject.Money, *valueobject.SlabRange) {
	rate := e.rate(in.Plan, e.cfg.SalaryPercentageRate)
	return in.Employee.Salary().Mul(rate.Mul(achievement.Fraction())), nil
}

func commission(e *Engine, in Input, _ valueobject.Percentage) (valueobject.Money, *valueobject.SlabRange) {
	base, _ := valueobject.NewMoney(in.ActualValue, in.Plan.Currency)
	return base.Mul(e.rate(in.Plan, e.cfg.CommissionRate)), nil
}

func mbo(e *Engine, in Input, achievement valueobject.Percentage) (valueobject.Money, *valueobject.SlabRange) {
	limit, _ := valueobject.NewPercentage(e.cfg.MBOAchievementCap)
	rate := e.rate(in.Plan, e.cfg.MBOTargetBonusRate)
	return in.Employee.Salary().Mul(rate.Mul(achievement.Cap(limit).Fraction())), nil
}

func slabBased(e *Engine, in Input, achievement valueobject.Percentage) (valueobject.Money, *valueobject.SlabRange) {
	slab := FindSlab(in.Plan.SlabRanges(), achievement)
	if slab == nil {
		return valueobject.ZeroMoney(in.Plan.Currency), nil
	}
	return slab.Payout(in.Employee.Salary()), slab
}

func describe(res Result) string {
	switch {
	case res.Capped:
		return "Calculated, payout limit applied"
	case res.Prorated:
		return "Calculated, prorated at " + res.ProrataFactor.String()
	case res.AppliedSlab != nil:
		return fmt.Sprintf("Calculated using slab %d", res.AppliedSlab.Order)
	default:
		return "Calculated"
	}
}
