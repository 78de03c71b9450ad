package calculation_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go-incentive/internal/calculation"
	calculationerrors "go-incentive/internal/calculation/errors"
	"go-incentive/internal/config"
	"go-incentive/internal/eligibility"
	"go-incentive/internal/employee"
	employeeerrors "go-incentive/internal/employee/errors"
	"go-incentive/internal/events"
	"go-incentive/internal/messaging/kafka"
	kafkamock "go-incentive/internal/messaging/kafka/mock"
	"go-incentive/internal/plan"
	planerrors "go-incentive/internal/plan/errors"
	"go-incentive/internal/shared/apperror"
	"go-incentive/internal/shared/scope"
	"go-incentive/internal/valueobject"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type fakeCalculationRepository struct {
	createFn   func(ctx context.Context, c *calculation.Calculation) error
	updateFn   func(ctx context.Context, c *calculation.Calculation) error
	findByIDFn func(ctx context.Context, id string) (*calculation.Calculation, error)
	findAllFn  func(ctx context.Context, filter calculation.ListFilter, page scope.Page) ([]calculation.Calculation, int64, error)
	existsFn   func(ctx context.Context, employeeID, planID string, start, end time.Time) (bool, error)
}

func (f *fakeCalculationRepository) WithTx(tx *sql.Tx) calculation.Repository { return f }

func (f *fakeCalculationRepository) Create(ctx context.Context, c *calculation.Calculation) error {
	if f.createFn != nil {
		return f.createFn(ctx, c)
	}
	return nil
}

func (f *fakeCalculationRepository) Update(ctx context.Context, c *calculation.Calculation) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, c)
	}
	return nil
}

func (f *fakeCalculationRepository) FindByID(ctx context.Context, id string) (*calculation.Calculation, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, calculationerrors.ErrCalculationNotFound
}

func (f *fakeCalculationRepository) FindAll(ctx context.Context, filter calculation.ListFilter, page scope.Page) ([]calculation.Calculation, int64, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx, filter, page)
	}
	return nil, 0, nil
}

func (f *fakeCalculationRepository) ExistsActive(ctx context.Context, employeeID, planID string, start, end time.Time) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, employeeID, planID, start, end)
	}
	return false, nil
}

type fakeEmployeeRepository struct {
	employees map[string]*employee.Employee
}

func (f *fakeEmployeeRepository) WithTx(tx *sql.Tx) employee.Repository { return f }

func (f *fakeEmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	if e, ok := f.employees[id]; ok {
		return e, nil
	}
	return nil, employeeerrors.ErrEmployeeNotFound
}

func (f *fakeEmployeeRepository) FindManagerID(ctx context.Context, id string) (string, error) {
	return "", nil
}

type fakePlanRepository struct {
	plan.Repository
	plans map[string]*plan.Plan
}

func (f *fakePlanRepository) WithTx(tx *sql.Tx) plan.Repository { return f }

func (f *fakePlanRepository) FindByID(ctx context.Context, id string) (*plan.Plan, error) {
	if p, ok := f.plans[id]; ok {
		return p, nil
	}
	return nil, planerrors.ErrPlanNotFound
}

type fakeAssignments struct {
	assigned bool
}

func (f fakeAssignments) IsAssigned(ctx context.Context, employeeID, planID string, period valueobject.DateRange) (bool, error) {
	return f.assigned, nil
}

type fakeCounter struct {
	next int64
}

func (f *fakeCounter) GetNextValue(ctx context.Context, counterType string) (int64, error) {
	f.next++
	return f.next, nil
}

type fakeApprovalCanceller struct {
	cancelled []string
	err       error
}

func (f *fakeApprovalCanceller) CancelPending(ctx context.Context, tx *sql.Tx, calculationID, reason string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.cancelled = append(f.cancelled, calculationID)
	return 1, nil
}

type calculationDeps struct {
	sqlMock   sqlmock.Sqlmock
	repo      *fakeCalculationRepository
	emps      *fakeEmployeeRepository
	outbox    *kafkamock.MockOutboxRepository
	canceller *fakeApprovalCanceller
	emp       *employee.Employee
	plan      *plan.Plan
	actorID   string
	assigned  bool
	db        *sql.DB
}

func setupCalculationTest(t *testing.T) *calculationDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	ctrl := gomock.NewController(t)

	emp := testEmployee()
	p := testPlan(plan.TypeFixed)

	return &calculationDeps{
		db:        db,
		sqlMock:   sqlMock,
		repo:      &fakeCalculationRepository{},
		emps:      &fakeEmployeeRepository{employees: map[string]*employee.Employee{emp.ID.String(): &emp}},
		outbox:    kafkamock.NewMockOutboxRepository(ctrl),
		canceller: &fakeApprovalCanceller{},
		emp:       &emp,
		plan:      &p,
		actorID:   uuid.NewString(),
		assigned:  true,
	}
}

func (d *calculationDeps) service() calculation.Service {
	cfg := config.DefaultIncentiveConfig()
	plans := &fakePlanRepository{plans: map[string]*plan.Plan{d.plan.ID.String(): d.plan}}
	return calculation.NewService(
		d.db,
		d.repo,
		d.emps,
		plans,
		fakeAssignments{assigned: d.assigned},
		calculation.NewEngine(cfg, eligibility.NewService(cfg)),
		&fakeCounter{},
		d.outbox,
		d.canceller,
	)
}

func (d *calculationDeps) expectEvents(eventTypes ...string) {
	for _, et := range eventTypes {
		eventType := et
		d.outbox.EXPECT().WithTx(gomock.Any()).Return(d.outbox)
		d.outbox.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, e kafka.OutboxEvent) error {
			if e.EventType != eventType {
				return errors.New("unexpected event " + e.EventType)
			}
			return nil
		})
	}
}

func (d *calculationDeps) request() calculation.CalculateRequest {
	return calculation.CalculateRequest{
		EmployeeID:  d.emp.ID.String(),
		PlanID:      d.plan.ID.String(),
		PeriodStart: "2026-04-01",
		PeriodEnd:   "2026-04-30",
		ActualValue: dec("1000"),
	}
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestService_Calculate(t *testing.T) {
	t.Run("persists and announces the calculation", func(t *testing.T) {
		d := setupCalculationTest(t)
		var created *calculation.Calculation
		d.repo.createFn = func(ctx context.Context, c *calculation.Calculation) error {
			created = c
			return nil
		}
		expectTx(d.sqlMock, true)
		d.expectEvents(events.CalculationCompleted)

		resp, err := d.service().Calculate(context.Background(), d.actorID, d.request())

		assert.NoError(t, err)
		assert.Equal(t, "INC-000001", resp.ReferenceNumber)
		assert.Equal(t, string(calculation.StatusCalculated), resp.Status)
		assert.True(t, resp.NetAmount.Equal(dec("1000")))
		assert.Equal(t, "USD", resp.Currency)
		if assert.NotNil(t, created) {
			assert.Equal(t, d.actorID, created.CalculatedBy.String())
		}
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("ineligible employee is stored as ineligible", func(t *testing.T) {
		d := setupCalculationTest(t)
		d.emp.Status = employee.StatusTerminated
		expectTx(d.sqlMock, true)
		d.expectEvents(events.CalculationCompleted)

		resp, err := d.service().Calculate(context.Background(), d.actorID, d.request())

		assert.NoError(t, err)
		assert.Equal(t, string(calculation.StatusIneligible), resp.Status)
		assert.True(t, resp.NetAmount.IsZero())
	})

	t.Run("employee must be assigned", func(t *testing.T) {
		d := setupCalculationTest(t)
		d.assigned = false
		expectTx(d.sqlMock, false)

		_, err := d.service().Calculate(context.Background(), d.actorID, d.request())

		assert.ErrorIs(t, err, calculationerrors.ErrEmployeeNotAssigned)
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("one calculation per employee plan and period", func(t *testing.T) {
		d := setupCalculationTest(t)
		d.repo.existsFn = func(ctx context.Context, employeeID, planID string, start, end time.Time) (bool, error) {
			return true, nil
		}
		expectTx(d.sqlMock, false)

		_, err := d.service().Calculate(context.Background(), d.actorID, d.request())

		assert.ErrorIs(t, err, calculationerrors.ErrDuplicateCalculation)
	})

	t.Run("unsupported plan type is a configuration error", func(t *testing.T) {
		d := setupCalculationTest(t)
		d.plan.PlanType = plan.TypeHybrid
		expectTx(d.sqlMock, false)

		_, err := d.service().Calculate(context.Background(), d.actorID, d.request())

		assert.Equal(t, apperror.CodeConfigurationError, apperror.CodeOf(err))
	})

	t.Run("invalid period", func(t *testing.T) {
		d := setupCalculationTest(t)
		req := d.request()
		req.PeriodEnd = "2026-03-01"
		expectTx(d.sqlMock, false)

		_, err := d.service().Calculate(context.Background(), d.actorID, req)

		assert.ErrorIs(t, err, calculationerrors.ErrInvalidPeriod)
	})
}

func TestService_BulkCalculate(t *testing.T) {
	d := setupCalculationTest(t)

	second := testEmployee()
	d.emps.employees[second.ID.String()] = &second
	missing := uuid.NewString()

	first := d.request()
	secondReq := d.request()
	secondReq.EmployeeID = second.ID.String()
	missingReq := d.request()
	missingReq.EmployeeID = missing

	d.sqlMock.ExpectBegin()
	d.sqlMock.ExpectExec("^SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^RELEASE SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^ROLLBACK TO SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^RELEASE SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectCommit()
	d.expectEvents(events.CalculationCompleted, events.CalculationCompleted)

	res, err := d.service().BulkCalculate(context.Background(), d.actorID, calculation.BulkCalculateRequest{
		Items: []calculation.CalculateRequest{first, missingReq, secondReq},
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.Len(t, res.Items, 2)
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, missing+"/"+d.plan.ID.String()+"/2026-04-01", res.Errors[0].ID)
		assert.Equal(t, apperror.CodeNotFound, res.Errors[0].Code)
	}
	assert.NoError(t, d.sqlMock.ExpectationsWereMet())
}

func TestService_BulkCalculateInterrupted(t *testing.T) {
	t.Run("finished items commit and the rest are reported", func(t *testing.T) {
		d := setupCalculationTest(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		second := testEmployee()
		d.emps.employees[second.ID.String()] = &second
		secondReq := d.request()
		secondReq.EmployeeID = second.ID.String()

		d.repo.createFn = func(ctx context.Context, c *calculation.Calculation) error {
			cancel()
			return nil
		}
		d.sqlMock.ExpectBegin()
		d.sqlMock.ExpectExec("^SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
		d.sqlMock.ExpectExec("^RELEASE SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
		d.sqlMock.ExpectCommit()
		d.expectEvents(events.CalculationCompleted)

		res, err := d.service().BulkCalculate(ctx, d.actorID, calculation.BulkCalculateRequest{
			Items: []calculation.CalculateRequest{d.request(), secondReq},
		})

		assert.ErrorIs(t, err, apperror.ErrBatchInterrupted)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, res.SuccessCount)
		assert.Equal(t, []string{secondReq.Key()}, res.Unprocessed)
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("cancelled before the first item", func(t *testing.T) {
		d := setupCalculationTest(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		d.sqlMock.ExpectBegin()
		d.sqlMock.ExpectCommit()

		res, err := d.service().BulkCalculate(ctx, d.actorID, calculation.BulkCalculateRequest{
			Items: []calculation.CalculateRequest{d.request()},
		})

		assert.ErrorIs(t, err, apperror.ErrBatchInterrupted)
		assert.Zero(t, res.SuccessCount)
		assert.Equal(t, []string{d.request().Key()}, res.Unprocessed)
	})
}

func TestService_Void(t *testing.T) {
	t.Run("closes pending approvals of a calculation awaiting approval", func(t *testing.T) {
		d := setupCalculationTest(t)
		c := calculationIn(calculation.StatusPendingApproval)
		d.repo.findByIDFn = func(ctx context.Context, id string) (*calculation.Calculation, error) { return c, nil }
		expectTx(d.sqlMock, true)

		resp, err := d.service().Void(context.Background(), d.actorID, c.ID.String(), calculation.ReasonRequest{Reason: "duplicate payout"})

		assert.NoError(t, err)
		assert.Equal(t, string(calculation.StatusVoided), resp.Status)
		assert.Equal(t, []string{c.ID.String()}, d.canceller.cancelled)
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("calculation outside the approval flow", func(t *testing.T) {
		d := setupCalculationTest(t)
		c := calculationIn(calculation.StatusCalculated)
		d.repo.findByIDFn = func(ctx context.Context, id string) (*calculation.Calculation, error) { return c, nil }
		expectTx(d.sqlMock, true)

		_, err := d.service().Void(context.Background(), d.actorID, c.ID.String(), calculation.ReasonRequest{Reason: "plan withdrawn"})

		assert.NoError(t, err)
		assert.Empty(t, d.canceller.cancelled)
	})

	t.Run("failing to close approvals keeps the calculation", func(t *testing.T) {
		d := setupCalculationTest(t)
		c := calculationIn(calculation.StatusPendingApproval)
		d.repo.findByIDFn = func(ctx context.Context, id string) (*calculation.Calculation, error) { return c, nil }
		updated := false
		d.repo.updateFn = func(ctx context.Context, c *calculation.Calculation) error {
			updated = true
			return nil
		}
		d.canceller.err = errors.New("approvals table locked")
		expectTx(d.sqlMock, false)

		_, err := d.service().Void(context.Background(), d.actorID, c.ID.String(), calculation.ReasonRequest{Reason: "duplicate payout"})

		assert.EqualError(t, err, "approvals table locked")
		assert.False(t, updated)
	})
}

func TestService_Recalculate(t *testing.T) {
	stored := func(d *calculationDeps, status calculation.Status) *calculation.Calculation {
		return &calculation.Calculation{
			ID:          uuid.New(),
			EmployeeID:  d.emp.ID,
			PlanID:      d.plan.ID,
			PeriodStart: date(2026, 4, 1),
			PeriodEnd:   date(2026, 4, 30),
			ActualValue: dec("1000"),
			NetAmount:   dec("1000"),
			Currency:    "USD",
			Status:      status,
			Version:     3,
		}
	}

	t.Run("rejected calculation with explicit prorata days", func(t *testing.T) {
		d := setupCalculationTest(t)
		c := stored(d, calculation.StatusRejected)
		d.repo.findByIDFn = func(ctx context.Context, id string) (*calculation.Calculation, error) { return c, nil }
		expectTx(d.sqlMock, true)
		d.expectEvents(events.CalculationCompleted)

		eligible, total := 15, 30
		resp, err := d.service().Recalculate(context.Background(), d.actorID, c.ID.String(), calculation.RecalculateRequest{
			EligibleDays: &eligible,
			TotalDays:    &total,
		})

		assert.NoError(t, err)
		assert.Equal(t, string(calculation.StatusProrated), resp.Status)
		assert.True(t, resp.GrossAmount.Equal(dec("1000")))
		assert.True(t, resp.NetAmount.Equal(dec("500")))
		assert.True(t, resp.ProrataFactor.Equal(dec("50")))
	})

	t.Run("invalid prorata days", func(t *testing.T) {
		d := setupCalculationTest(t)
		c := stored(d, calculation.StatusCalculated)
		d.repo.findByIDFn = func(ctx context.Context, id string) (*calculation.Calculation, error) { return c, nil }
		expectTx(d.sqlMock, false)

		eligible, total := 31, 30
		_, err := d.service().Recalculate(context.Background(), d.actorID, c.ID.String(), calculation.RecalculateRequest{
			EligibleDays: &eligible,
			TotalDays:    &total,
		})

		assert.ErrorIs(t, err, calculationerrors.ErrInvalidProrataInput)
	})

	t.Run("paid calculation is final", func(t *testing.T) {
		d := setupCalculationTest(t)
		c := stored(d, calculation.StatusPaid)
		d.repo.findByIDFn = func(ctx context.Context, id string) (*calculation.Calculation, error) { return c, nil }
		expectTx(d.sqlMock, false)

		_, err := d.service().Recalculate(context.Background(), d.actorID, c.ID.String(), calculation.RecalculateRequest{})

		assert.ErrorIs(t, err, calculationerrors.ErrInvalidStatusTransition)
	})
}

func TestService_MarkPaid(t *testing.T) {
	t.Run("approved calculation", func(t *testing.T) {
		d := setupCalculationTest(t)
		c := calculationIn(calculation.StatusApproved)
		d.repo.findByIDFn = func(ctx context.Context, id string) (*calculation.Calculation, error) { return c, nil }
		expectTx(d.sqlMock, true)
		d.expectEvents(events.CalculationPaid)

		resp, err := d.service().MarkPaid(context.Background(), d.actorID, c.ID.String(), calculation.MarkPaidRequest{PaymentRef: "PAY-2026-04"})

		assert.NoError(t, err)
		assert.Equal(t, string(calculation.StatusPaid), resp.Status)
		assert.Equal(t, "PAY-2026-04", resp.PaymentRef)
	})

	t.Run("concurrent writer wins", func(t *testing.T) {
		d := setupCalculationTest(t)
		c := calculationIn(calculation.StatusApproved)
		d.repo.findByIDFn = func(ctx context.Context, id string) (*calculation.Calculation, error) { return c, nil }
		d.repo.updateFn = func(ctx context.Context, c *calculation.Calculation) error {
			return apperror.ErrConcurrentModification
		}
		expectTx(d.sqlMock, false)

		_, err := d.service().MarkPaid(context.Background(), d.actorID, c.ID.String(), calculation.MarkPaidRequest{PaymentRef: "PAY-1"})

		assert.ErrorIs(t, err, apperror.ErrConcurrentModification)
	})
}

func TestService_Adjust(t *testing.T) {
	d := setupCalculationTest(t)
	c := calculationIn(calculation.StatusCalculated)
	d.repo.findByIDFn = func(ctx context.Context, id string) (*calculation.Calculation, error) { return c, nil }
	expectTx(d.sqlMock, true)

	resp, err := d.service().Adjust(context.Background(), d.actorID, c.ID.String(), calculation.AdjustRequest{
		Amount: dec("750"),
		Reason: "quota relief",
	})

	assert.NoError(t, err)
	assert.True(t, resp.IsAdjusted)
	assert.True(t, resp.NetAmount.Equal(dec("750")))
	assert.True(t, resp.OriginalNetAmount.Equal(dec("1000")))
	assert.Equal(t, string(calculation.StatusCalculated), resp.Status)
}

func TestService_List(t *testing.T) {
	d := setupCalculationTest(t)

	_, _, err := d.service().List(context.Background(), calculation.ListFilter{Status: "unknown"}, scope.Page{Number: 1, Size: 10})
	assert.ErrorIs(t, err, calculationerrors.ErrInvalidStatusFilter)

	d.repo.findAllFn = func(ctx context.Context, filter calculation.ListFilter, page scope.Page) ([]calculation.Calculation, int64, error) {
		assert.Equal(t, "APPROVED", filter.Status)
		return []calculation.Calculation{*calculationIn(calculation.StatusApproved)}, 1, nil
	}
	items, total, err := d.service().List(context.Background(), calculation.ListFilter{Status: "approved"}, scope.Page{Number: 1, Size: 10})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)
}
