package eligibility

import (
	"fmt"
	"time"

	"go-incentive/internal/config"
	"go-incentive/internal/employee"
	"go-incentive/internal/plan"
	"go-incentive/internal/valueobject"

	"github.com/shopspring/decimal"
)

type Criterion string

const (
	CriterionEmployeeStatus Criterion = "EMPLOYEE_STATUS"
	CriterionPlanStatus     Criterion = "PLAN_STATUS"
	CriterionPlanEffective  Criterion = "PLAN_EFFECTIVE"
	CriterionMinimumTenure  Criterion = "MINIMUM_TENURE"
	CriterionJoinedInPeriod Criterion = "JOINED_BEFORE_PERIOD_END"
)

type CriterionResult struct {
	Criterion   Criterion `json:"criterion"`
	Description string    `json:"description"`
}

type Result struct {
	IsEligible     bool                   `json:"is_eligible"`
	Reason         string                 `json:"reason,omitempty"`
	CriteriaMet    []CriterionResult      `json:"criteria_met"`
	CriteriaNotMet []CriterionResult      `json:"criteria_not_met"`
	ProrataFactor  valueobject.Percentage `json:"prorata_factor"`
}

// Service decides plan participation. It holds no state besides config and
// is safe for concurrent use.
type Service struct {
	cfg config.IncentiveConfig
}

func NewService(cfg config.IncentiveConfig) *Service {
	return &Service{cfg: cfg}
}

// CheckEligibility evaluates the five participation criteria on asOf and, when
// all pass, the prorata factor over the plan's effective period.
func (s *Service) CheckEligibility(emp employee.Employee, p plan.Plan, asOf time.Time) Result {
	period, _ := p.Period()
	return s.evaluate(emp, p, asOf, period)
}

// CheckForPeriod evaluates the criteria as of the period's last day and
// prorates over the calculation period instead of the whole plan period.
func (s *Service) CheckForPeriod(emp employee.Employee, p plan.Plan, period valueobject.DateRange) Result {
	return s.evaluate(emp, p, period.End(), period)
}

func (s *Service) evaluate(emp employee.Employee, p plan.Plan, asOf time.Time, prorataOver valueobject.DateRange) Result {
	res := Result{
		CriteriaMet:    []CriterionResult{},
		CriteriaNotMet: []CriterionResult{},
		ProrataFactor:  valueobject.ZeroPercentage(),
	}
	check := func(c Criterion, ok bool, met, notMet string) {
		if ok {
			res.CriteriaMet = append(res.CriteriaMet, CriterionResult{Criterion: c, Description: met})
			return
		}
		res.CriteriaNotMet = append(res.CriteriaNotMet, CriterionResult{Criterion: c, Description: notMet})
	}

	check(CriterionEmployeeStatus, emp.CanParticipate(),
		"employee status is "+string(emp.Status),
		fmt.Sprintf("employee status %s is not eligible", emp.Status))

	check(CriterionPlanStatus, p.Status == plan.StatusActive,
		"plan is active",
		fmt.Sprintf("plan status %s is not active", p.Status))

	check(CriterionPlanEffective, p.IsEffectiveOn(asOf),
		"plan is effective on "+asOf.Format(valueobject.DateLayout),
		"plan is not effective on "+asOf.Format(valueobject.DateLayout))

	minTenure := s.cfg.DefaultMinimumTenureDays
	if p.MinimumTenureDays != nil {
		minTenure = *p.MinimumTenureDays
	}
	tenure := valueobject.DaysBetween(emp.DateOfJoining, asOf)
	check(CriterionMinimumTenure, tenure >= minTenure,
		fmt.Sprintf("tenure of %d days meets minimum of %d", tenure, minTenure),
		fmt.Sprintf("tenure of %d days is below minimum of %d", tenure, minTenure))

	joinedInTime := !valueobject.Day(emp.DateOfJoining).After(valueobject.Day(p.EffectiveTo))
	check(CriterionJoinedInPeriod, joinedInTime,
		"employee joined before plan period end",
		"employee joined after plan period end")

	if len(res.CriteriaNotMet) > 0 {
		res.Reason = res.CriteriaNotMet[0].Description
		return res
	}

	res.IsEligible = true
	res.ProrataFactor = s.ProrataFactor(emp, prorataOver)
	return res
}

// ProrataFactor is the share of period during which the employee was
// employed, rounded to four places.
func (s *Service) ProrataFactor(emp employee.Employee, period valueobject.DateRange) valueobject.Percentage {
	start := period.Start()
	if join := valueobject.Day(emp.DateOfJoining); join.After(start) {
		start = join
	}
	end := period.End()
	if emp.DateOfLeaving != nil {
		if leave := valueobject.Day(*emp.DateOfLeaving); leave.Before(end) {
			end = leave
		}
	}

	clipped, err := valueobject.NewDateRange(start, end)
	if err != nil {
		return valueobject.ZeroPercentage()
	}
	if clipped.Equal(period) {
		return valueobject.FullPercentage()
	}
	return valueobject.PercentageOf(
		decimal.NewFromInt(int64(clipped.TotalDays())),
		decimal.NewFromInt(int64(period.TotalDays())),
	)
}
