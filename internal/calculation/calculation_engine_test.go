package calculation_test

import (
	"testing"
	"time"

	"go-incentive/internal/calculation"
	calculationerrors "go-incentive/internal/calculation/errors"
	"go-incentive/internal/config"
	"go-incentive/internal/eligibility"
	"go-incentive/internal/employee"
	"go-incentive/internal/plan"
	"go-incentive/internal/valueobject"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func usd(v string) valueobject.Money { return valueobject.MustMoney(v, "USD") }

var april = valueobject.MustDateRange("2026-04-01", "2026-04-30")

func newEngine() *calculation.Engine {
	cfg := config.DefaultIncentiveConfig()
	return calculation.NewEngine(cfg, eligibility.NewService(cfg))
}

func testPlan(t plan.PlanType) plan.Plan {
	tenure := 0
	return plan.Plan{
		ID:                uuid.New(),
		Code:              "Q2-SALES",
		Name:              "Q2 sales",
		PlanType:          t,
		Status:            plan.StatusActive,
		EffectiveFrom:     date(2026, 4, 1),
		EffectiveTo:       date(2026, 4, 30),
		TargetValue:       dec("1000"),
		MinimumThreshold:  dec("500"),
		Currency:          "USD",
		MinimumTenureDays: &tenure,
	}
}

func slabPlan() plan.Plan {
	p := testPlan(plan.TypeSlabBased)
	p.Slabs = []plan.Slab{
		{ID: uuid.New(), FromPercentage: dec("0"), ToPercentage: dec("80"), PayoutRate: dec("0.05"), SortOrder: 1},
		{ID: uuid.New(), FromPercentage: dec("80"), ToPercentage: dec("100"), PayoutRate: dec("0.10"), SortOrder: 2},
		{ID: uuid.New(), FromPercentage: dec("100"), ToPercentage: dec("150"), PayoutRate: dec("0.15"), SortOrder: 3},
		{ID: uuid.New(), FromPercentage: dec("150"), ToPercentage: dec("1000"), PayoutRate: dec("0.20"), SortOrder: 4},
	}
	return p
}

func testEmployee() employee.Employee {
	return employee.Employee{
		ID:            uuid.New(),
		Status:        employee.StatusActive,
		DateOfJoining: date(2024, 1, 1),
		BaseSalary:    dec("10000"),
		Currency:      "USD",
	}
}

func calculate(t *testing.T, e *calculation.Engine, emp employee.Employee, p plan.Plan, actual string) calculation.Result {
	t.Helper()
	res, err := e.Calculate(calculation.Input{Employee: emp, Plan: p, ActualValue: dec(actual), Period: april})
	assert.NoError(t, err)
	return res
}

func TestEngine_PlanTypeFormulas(t *testing.T) {
	e := newEngine()
	emp := testEmployee()

	cases := []struct {
		name   string
		plan   plan.Plan
		actual string
		gross  string
	}{
		{"fixed pays ten percent of salary", testPlan(plan.TypeFixed), "1000", "1000"},
		{"percentage of salary scales with achievement", testPlan(plan.TypePercentageOfSalary), "1200", "1200"},
		{"commission pays five percent of actual", testPlan(plan.TypeCommission), "1200", "60"},
		{"mbo caps achievement at 150", testPlan(plan.TypeMBO), "2000", "2250"},
		{"slab at exactly 100 uses the upper slab", slabPlan(), "1000", "1500"},
		{"slab inside the middle tier", slabPlan(), "900", "1000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := calculate(t, e, emp, tc.plan, tc.actual)
			assert.True(t, res.Success)
			assert.True(t, res.Eligible)
			assert.True(t, res.Gross.Equal(usd(tc.gross)), res.Gross.String())
			assert.True(t, res.Net.Equal(usd(tc.gross)), res.Net.String())
			assert.False(t, res.Prorated)
			assert.False(t, res.Capped)
		})
	}
}

func TestEngine_PlanPayoutRateOverridesConfig(t *testing.T) {
	p := testPlan(plan.TypeFixed)
	p.PayoutRate = decPtr("0.25")

	res := calculate(t, newEngine(), testEmployee(), p, "1000")
	assert.True(t, res.Gross.Equal(usd("2500")), res.Gross.String())
}

func TestEngine_SlabBoundary(t *testing.T) {
	res := calculate(t, newEngine(), testEmployee(), slabPlan(), "1000")
	if assert.NotNil(t, res.AppliedSlab) {
		assert.Equal(t, 3, res.AppliedSlab.Order)
	}
	assert.True(t, res.Achievement.Equal(valueobject.MustPercentage("100")))
}

func TestEngine_SlabWithoutMatch(t *testing.T) {
	p := testPlan(plan.TypeSlabBased)
	p.Slabs = []plan.Slab{
		{ID: uuid.New(), FromPercentage: dec("120"), ToPercentage: dec("200"), PayoutRate: dec("0.10"), SortOrder: 1},
	}

	res := calculate(t, newEngine(), testEmployee(), p, "1000")
	assert.True(t, res.Success)
	assert.Nil(t, res.AppliedSlab)
	assert.True(t, res.Gross.IsZero())
}

func TestEngine_BelowThreshold(t *testing.T) {
	p := testPlan(plan.TypeFixed)
	p.MinimumPayout = decPtr("300")

	res := calculate(t, newEngine(), testEmployee(), p, "400")
	assert.True(t, res.Success)
	assert.True(t, res.BelowThreshold)
	assert.Equal(t, calculation.MessageBelowThreshold, res.Message)
	assert.True(t, res.Gross.IsZero())
	assert.True(t, res.Net.IsZero(), "zero net is never raised to the minimum payout")
	assert.True(t, res.Achievement.Equal(valueobject.MustPercentage("40")))
}

func TestEngine_Ineligible(t *testing.T) {
	emp := testEmployee()
	emp.Status = employee.StatusTerminated

	res := calculate(t, newEngine(), emp, testPlan(plan.TypeFixed), "1000")
	assert.False(t, res.Success)
	assert.False(t, res.Eligible)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, res.Eligibility.Reason, res.Message)
	assert.True(t, res.Net.IsZero())
	assert.Equal(t, "USD", res.Net.Currency())
}

func TestEngine_ProrataFromJoinDate(t *testing.T) {
	emp := testEmployee()
	emp.DateOfJoining = date(2026, 4, 16)

	res := calculate(t, newEngine(), emp, testPlan(plan.TypeFixed), "1000")
	assert.True(t, res.Success)
	assert.True(t, res.Prorated)
	assert.True(t, res.ProrataFactor.Equal(valueobject.MustPercentage("50")))
	assert.True(t, res.Gross.Equal(usd("1000")), res.Gross.String())
	assert.True(t, res.Net.Equal(usd("500")), res.Net.String())
}

func TestEngine_PayoutLimits(t *testing.T) {
	t.Run("maximum clamps net", func(t *testing.T) {
		p := testPlan(plan.TypeFixed)
		p.MaximumPayout = decPtr("800")

		res := calculate(t, newEngine(), testEmployee(), p, "1000")
		assert.True(t, res.Capped)
		assert.True(t, res.Gross.Equal(usd("1000")))
		assert.True(t, res.Net.Equal(usd("800")))
	})

	t.Run("minimum raises a positive net", func(t *testing.T) {
		p := testPlan(plan.TypeFixed)
		p.MinimumPayout = decPtr("1500")

		res := calculate(t, newEngine(), testEmployee(), p, "1000")
		assert.True(t, res.Capped)
		assert.True(t, res.Net.Equal(usd("1500")))
	})
}

func TestApplyCap_Idempotent(t *testing.T) {
	p := testPlan(plan.TypeFixed)
	p.MaximumPayout = decPtr("800")
	p.MinimumPayout = decPtr("100")

	for _, amount := range []string{"0", "50", "500", "800", "5000"} {
		once, _ := calculation.ApplyCap(usd(amount), p)
		twice, changed := calculation.ApplyCap(once, p)
		assert.True(t, once.Equal(twice), amount)
		assert.False(t, changed, amount)
	}
}

func TestApplyProrata(t *testing.T) {
	got, err := calculation.ApplyProrata(usd("1000"), 15, 30)
	assert.NoError(t, err)
	assert.True(t, got.Equal(usd("500")), got.String())

	got, err = calculation.ApplyProrata(usd("900"), 30, 30)
	assert.NoError(t, err)
	assert.True(t, got.Equal(usd("900")))

	for _, days := range [][2]int{{0, 30}, {15, 0}, {31, 30}, {-1, 30}} {
		_, err := calculation.ApplyProrata(usd("1000"), days[0], days[1])
		assert.ErrorIs(t, err, calculationerrors.ErrInvalidProrataInput, "%v", days)
	}
}

func TestEngine_GrossMonotonicAboveTarget(t *testing.T) {
	e := newEngine()
	emp := testEmployee()

	for _, p := range []plan.Plan{
		slabPlan(),
		testPlan(plan.TypePercentageOfSalary),
		testPlan(plan.TypeCommission),
		testPlan(plan.TypeMBO),
	} {
		prev := valueobject.ZeroMoney("USD")
		for actual := int64(1000); actual <= 3000; actual += 50 {
			res, err := e.Calculate(calculation.Input{
				Employee:    emp,
				Plan:        p,
				ActualValue: decimal.NewFromInt(actual),
				Period:      april,
			})
			assert.NoError(t, err)
			assert.True(t, res.Achievement.GreaterOrEqual(valueobject.FullPercentage()))
			assert.False(t, res.Gross.LessThan(prev), "%s at %d", p.PlanType, actual)
			prev = res.Gross
		}
	}
}

func TestEngine_ConfigurationErrors(t *testing.T) {
	e := newEngine()

	for _, pt := range []plan.PlanType{plan.TypeHybrid, plan.TypePoolBased, plan.TypeSpotBonus} {
		_, err := e.Calculate(calculation.Input{Employee: testEmployee(), Plan: testPlan(pt), ActualValue: dec("1000"), Period: april})
		assert.ErrorIs(t, err, calculationerrors.ErrUnsupportedPlanType, string(pt))
		assert.False(t, calculation.SupportsPlanType(pt))
	}

	emp := testEmployee()
	emp.Currency = "EUR"
	_, err := e.Calculate(calculation.Input{Employee: emp, Plan: testPlan(plan.TypeFixed), ActualValue: dec("1000"), Period: april})
	assert.ErrorIs(t, err, calculationerrors.ErrSalaryCurrencyMismatch)
}

func TestFindSlab(t *testing.T) {
	slabs := slabPlan().SlabRanges()

	assert.Equal(t, 1, calculation.FindSlab(slabs, valueobject.MustPercentage("79.5")).Order)
	assert.Equal(t, 2, calculation.FindSlab(slabs, valueobject.MustPercentage("80")).Order)
	assert.Equal(t, 3, calculation.FindSlab(slabs, valueobject.MustPercentage("100")).Order)
	assert.Nil(t, calculation.FindSlab(slabs[1:], valueobject.MustPercentage("10")))
}
