package approval_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go-incentive/internal/approval"
	approvalerrors "go-incentive/internal/approval/errors"
	approvalmock "go-incentive/internal/approval/mock"
	"go-incentive/internal/calculation"
	calculationerrors "go-incentive/internal/calculation/errors"
	"go-incentive/internal/employee"
	employeeerrors "go-incentive/internal/employee/errors"
	"go-incentive/internal/events"
	"go-incentive/internal/messaging/kafka"
	kafkamock "go-incentive/internal/messaging/kafka/mock"
	"go-incentive/internal/plan"
	planerrors "go-incentive/internal/plan/errors"
	"go-incentive/internal/shared/apperror"
	"go-incentive/internal/shared/scope"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type fakeApprovalRepository struct {
	items     map[uuid.UUID]approval.Approval
	afterList func()
}

func (f *fakeApprovalRepository) listed(items []approval.Approval) ([]approval.Approval, error) {
	if f.afterList != nil {
		f.afterList()
	}
	return items, nil
}

func (f *fakeApprovalRepository) WithTx(tx *sql.Tx) approval.Repository { return f }

func (f *fakeApprovalRepository) Create(ctx context.Context, a *approval.Approval) error {
	f.items[a.ID] = *a
	return nil
}

func (f *fakeApprovalRepository) Update(ctx context.Context, a *approval.Approval) error {
	stored, ok := f.items[a.ID]
	if !ok || !stored.IsPending() {
		return approvalerrors.ErrInvalidApprovalState
	}
	f.items[a.ID] = *a
	return nil
}

func (f *fakeApprovalRepository) FindByID(ctx context.Context, id string) (*approval.Approval, error) {
	a, ok := f.items[uuid.MustParse(id)]
	if !ok {
		return nil, approvalerrors.ErrApprovalNotFound
	}
	return &a, nil
}

func (f *fakeApprovalRepository) FindByIDForUpdate(ctx context.Context, id string) (*approval.Approval, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeApprovalRepository) filter(keep func(a approval.Approval) bool) []approval.Approval {
	out := []approval.Approval{}
	for _, a := range f.items {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeApprovalRepository) FindByCalculation(ctx context.Context, calculationID string) ([]approval.Approval, error) {
	return f.filter(func(a approval.Approval) bool { return a.CalculationID.String() == calculationID }), nil
}

func (f *fakeApprovalRepository) FindPendingByCalculation(ctx context.Context, calculationID string) ([]approval.Approval, error) {
	return f.filter(func(a approval.Approval) bool {
		return a.CalculationID.String() == calculationID && a.IsPending()
	}), nil
}

func (f *fakeApprovalRepository) FindPendingByApprover(ctx context.Context, approverID string, page scope.Page) ([]approval.Approval, int64, error) {
	items := f.filter(func(a approval.Approval) bool { return a.ApproverID.String() == approverID && a.IsPending() })
	return items, int64(len(items)), nil
}

func (f *fakeApprovalRepository) FindOverdue(ctx context.Context, now time.Time, maxLevel, limit int) ([]approval.Approval, error) {
	return f.listed(f.filter(func(a approval.Approval) bool { return a.IsOverdue(now) && a.Level < maxLevel }))
}

func (f *fakeApprovalRepository) FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]approval.Approval, error) {
	return f.listed(f.filter(func(a approval.Approval) bool { return a.IsPending() && !a.ExpiresAt.After(cutoff) }))
}

type fakeCalculationRepository struct {
	items map[uuid.UUID]calculation.Calculation
}

func (f *fakeCalculationRepository) WithTx(tx *sql.Tx) calculation.Repository { return f }

func (f *fakeCalculationRepository) Create(ctx context.Context, c *calculation.Calculation) error {
	f.items[c.ID] = *c
	return nil
}

func (f *fakeCalculationRepository) Update(ctx context.Context, c *calculation.Calculation) error {
	stored, ok := f.items[c.ID]
	if ok && stored.Version != c.Version {
		return apperror.ErrConcurrentModification
	}
	c.Version++
	f.items[c.ID] = *c
	return nil
}

func (f *fakeCalculationRepository) FindByID(ctx context.Context, id string) (*calculation.Calculation, error) {
	c, ok := f.items[uuid.MustParse(id)]
	if !ok {
		return nil, calculationerrors.ErrCalculationNotFound
	}
	return &c, nil
}

func (f *fakeCalculationRepository) FindAll(ctx context.Context, filter calculation.ListFilter, page scope.Page) ([]calculation.Calculation, int64, error) {
	return nil, 0, nil
}

func (f *fakeCalculationRepository) ExistsActive(ctx context.Context, employeeID, planID string, start, end time.Time) (bool, error) {
	return false, nil
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

type approvalDeps struct {
	sqlMock      sqlmock.Sqlmock
	service      approval.Service
	approvals    *fakeApprovalRepository
	calculations *fakeCalculationRepository
	employees    *fakeEmployeeRepository
	hierarchy    *approvalmock.MockOrgHierarchy
	outbox       *kafkamock.MockOutboxRepository
	plan         *plan.Plan
	emp          *employee.Employee
	department   uuid.UUID
	manager      uuid.UUID
	director     uuid.UUID
}

func setupApprovalTest(t *testing.T) *approvalDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	ctrl := gomock.NewController(t)

	dept := uuid.New()
	emp := &employee.Employee{ID: uuid.New(), DepartmentID: dept, Status: employee.StatusActive, Currency: "USD"}
	p := &plan.Plan{ID: uuid.New(), Status: plan.StatusActive, Currency: "USD", RequiresApproval: true}

	d := &approvalDeps{
		sqlMock:      sqlMock,
		approvals:    &fakeApprovalRepository{items: map[uuid.UUID]approval.Approval{}},
		calculations: &fakeCalculationRepository{items: map[uuid.UUID]calculation.Calculation{}},
		employees:    &fakeEmployeeRepository{employees: map[string]*employee.Employee{emp.ID.String(): emp}},
		hierarchy:    approvalmock.NewMockOrgHierarchy(ctrl),
		outbox:       kafkamock.NewMockOutboxRepository(ctrl),
		plan:         p,
		emp:          emp,
		department:   dept,
		manager:      uuid.New(),
		director:     uuid.New(),
	}
	d.employees.employees[d.manager.String()] = &employee.Employee{ID: d.manager}
	d.employees.employees[d.director.String()] = &employee.Employee{ID: d.director}

	d.service = approval.NewService(
		db,
		d.approvals,
		d.calculations,
		&fakePlanRepository{plans: map[string]*plan.Plan{p.ID.String(): p}},
		d.employees,
		d.hierarchy,
		newWorkflow(),
		d.outbox,
	)
	return d
}

func (d *approvalDeps) calculationWith(net string, status calculation.Status) calculation.Calculation {
	c := calculation.Calculation{
		ID:         uuid.New(),
		EmployeeID: d.emp.ID,
		PlanID:     d.plan.ID,
		NetAmount:  decimal.RequireFromString(net),
		Currency:   "USD",
		Status:     status,
		Version:    1,
	}
	d.calculations.items[c.ID] = c
	return c
}

func (d *approvalDeps) pendingFor(c calculation.Calculation, approver uuid.UUID, level int) approval.Approval {
	a := approval.Approval{
		ID:            uuid.New(),
		CalculationID: c.ID,
		DepartmentID:  d.department,
		ApproverID:    approver,
		Level:         level,
		LevelName:     "Manager",
		Status:        approval.StatusPending,
		RequestedAt:   clock.Add(-time.Hour),
		ExpiresAt:     clock.Add(71 * time.Hour),
	}
	d.approvals.items[a.ID] = a
	return a
}

func (d *approvalDeps) expectEvents(eventTypes ...string) {
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

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestService_EscalationChain(t *testing.T) {
	d := setupApprovalTest(t)
	ctx := context.Background()
	c := d.calculationWith("75000", calculation.StatusCalculated)

	d.hierarchy.EXPECT().GetApproverForLevel(gomock.Any(), 1, d.department.String()).Return(d.manager.String(), nil)
	d.hierarchy.EXPECT().GetApproverForLevel(gomock.Any(), 2, d.department.String()).Return(d.director.String(), nil)
	d.expectEvents(events.CalculationSubmitted, events.CalculationApproved)
	expectTx(d.sqlMock, true)
	expectTx(d.sqlMock, true)
	expectTx(d.sqlMock, true)

	submitted, err := d.service.Submit(ctx, uuid.NewString(), approval.SubmitRequest{CalculationID: c.ID.String()})
	assert.NoError(t, err)
	assert.Equal(t, string(calculation.StatusPendingApproval), submitted.CalculationStatus)
	assert.Equal(t, 2, submitted.Requirement.Level)
	if !assert.NotNil(t, submitted.Approval) {
		return
	}
	assert.Equal(t, 1, submitted.Approval.Level)
	assert.Equal(t, d.manager.String(), submitted.Approval.ApproverID)
	assert.Equal(t, clock.Add(72*time.Hour).Format(time.RFC3339), submitted.Approval.ExpiresAt)

	first, err := d.service.Approve(ctx, d.manager.String(), submitted.Approval.ID, approval.DecisionRequest{Comments: "fine"})
	assert.NoError(t, err)
	assert.Equal(t, string(calculation.StatusPendingApproval), first.CalculationStatus)
	if !assert.NotNil(t, first.Next) {
		return
	}
	assert.Equal(t, 2, first.Next.Level)
	assert.Equal(t, "Director", first.Next.LevelName)
	assert.Equal(t, d.director.String(), first.Next.ApproverID)

	second, err := d.service.Approve(ctx, d.director.String(), first.Next.ID, approval.DecisionRequest{})
	assert.NoError(t, err)
	assert.Nil(t, second.Next)
	assert.Equal(t, string(calculation.StatusApproved), second.CalculationStatus)
	assert.Equal(t, calculation.StatusApproved, d.calculations.items[c.ID].Status)
	assert.NoError(t, d.sqlMock.ExpectationsWereMet())
}

func TestService_SubmitWithoutApproval(t *testing.T) {
	d := setupApprovalTest(t)
	d.plan.RequiresApproval = false
	c := d.calculationWith("1000", calculation.StatusCapped)
	expectTx(d.sqlMock, true)
	d.expectEvents(events.CalculationSubmitted, events.CalculationApproved)

	resp, err := d.service.Submit(context.Background(), uuid.NewString(), approval.SubmitRequest{CalculationID: c.ID.String()})

	assert.NoError(t, err)
	assert.Nil(t, resp.Approval)
	assert.Equal(t, string(calculation.StatusApproved), resp.CalculationStatus)
}

func TestService_SubmitErrors(t *testing.T) {
	t.Run("below threshold cannot be submitted", func(t *testing.T) {
		d := setupApprovalTest(t)
		c := d.calculationWith("0", calculation.StatusBelowThreshold)
		expectTx(d.sqlMock, false)

		_, err := d.service.Submit(context.Background(), uuid.NewString(), approval.SubmitRequest{CalculationID: c.ID.String()})

		assert.ErrorIs(t, err, calculationerrors.ErrInvalidStatusTransition)
	})

	t.Run("no level 1 approver", func(t *testing.T) {
		d := setupApprovalTest(t)
		c := d.calculationWith("1000", calculation.StatusCalculated)
		d.hierarchy.EXPECT().GetApproverForLevel(gomock.Any(), 1, d.department.String()).Return("", nil)
		expectTx(d.sqlMock, false)

		_, err := d.service.Submit(context.Background(), uuid.NewString(), approval.SubmitRequest{CalculationID: c.ID.String()})

		assert.ErrorIs(t, err, approvalerrors.ErrNoApprover)
		assert.Equal(t, calculation.StatusCalculated, d.calculations.items[c.ID].Status)
	})
}

func TestService_RejectCancelsSiblings(t *testing.T) {
	d := setupApprovalTest(t)
	c := d.calculationWith("10000", calculation.StatusPendingApproval)
	rejected := d.pendingFor(c, d.manager, 1)
	sibling := d.pendingFor(c, d.director, 1)
	expectTx(d.sqlMock, true)
	d.expectEvents(events.CalculationRejected)

	resp, err := d.service.Reject(context.Background(), d.manager.String(), rejected.ID.String(), approval.ReasonRequest{Reason: "wrong quota"})

	assert.NoError(t, err)
	assert.Equal(t, string(calculation.StatusRejected), resp.CalculationStatus)
	assert.Equal(t, approval.StatusRejected, d.approvals.items[rejected.ID].Status)
	assert.Equal(t, approval.StatusCancelled, d.approvals.items[sibling.ID].Status)
	assert.Equal(t, "wrong quota", d.calculations.items[c.ID].RejectionReason)
}

func TestService_OnlyApproverDecides(t *testing.T) {
	d := setupApprovalTest(t)
	c := d.calculationWith("10000", calculation.StatusPendingApproval)
	a := d.pendingFor(c, d.manager, 1)
	expectTx(d.sqlMock, false)

	_, err := d.service.Approve(context.Background(), uuid.NewString(), a.ID.String(), approval.DecisionRequest{})

	assert.ErrorIs(t, err, approvalerrors.ErrNotApprover)
	assert.True(t, d.approvals.items[a.ID].IsPending())
}

func TestService_BulkApprove(t *testing.T) {
	d := setupApprovalTest(t)
	first := d.pendingFor(d.calculationWith("10000", calculation.StatusPendingApproval), d.manager, 1)
	second := d.pendingFor(d.calculationWith("20000", calculation.StatusPendingApproval), d.manager, 1)
	missing := uuid.NewString()

	d.sqlMock.ExpectBegin()
	d.sqlMock.ExpectExec("^SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^RELEASE SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^ROLLBACK TO SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^RELEASE SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectCommit()
	d.expectEvents(events.CalculationApproved, events.CalculationApproved)

	res, err := d.service.BulkApprove(context.Background(), d.manager.String(), approval.BulkApproveRequest{
		ApprovalIDs: []string{first.ID.String(), missing, second.ID.String()},
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, missing, res.Errors[0].ID)
		assert.Equal(t, apperror.CodeNotFound, res.Errors[0].Code)
	}
	assert.Equal(t, approval.StatusApproved, d.approvals.items[first.ID].Status)
	assert.Equal(t, approval.StatusApproved, d.approvals.items[second.ID].Status)
	assert.Equal(t, calculation.StatusApproved, d.calculations.items[first.CalculationID].Status)
	assert.Equal(t, calculation.StatusApproved, d.calculations.items[second.CalculationID].Status)
	assert.NoError(t, d.sqlMock.ExpectationsWereMet())
}

func TestService_Delegate(t *testing.T) {
	d := setupApprovalTest(t)
	c := d.calculationWith("10000", calculation.StatusPendingApproval)
	a := d.pendingFor(c, d.manager, 1)
	expectTx(d.sqlMock, true)
	d.expectEvents(events.ApprovalDelegated)

	next, err := d.service.Delegate(context.Background(), d.manager.String(), a.ID.String(), approval.DelegateRequest{ToEmployeeID: d.director.String()})

	assert.NoError(t, err)
	assert.Equal(t, d.director.String(), next.ApproverID)
	assert.Equal(t, 1, next.Level)
	assert.Equal(t, a.ExpiresAt.Format(time.RFC3339), next.ExpiresAt)
	assert.Equal(t, approval.StatusDelegated, d.approvals.items[a.ID].Status)
}

func TestService_DelegateToSelf(t *testing.T) {
	d := setupApprovalTest(t)
	a := d.pendingFor(d.calculationWith("10000", calculation.StatusPendingApproval), d.manager, 1)
	expectTx(d.sqlMock, false)

	_, err := d.service.Delegate(context.Background(), d.manager.String(), a.ID.String(), approval.DelegateRequest{ToEmployeeID: d.manager.String()})

	assert.ErrorIs(t, err, approvalerrors.ErrSelfDelegation)
}

func TestService_Escalate(t *testing.T) {
	t.Run("moves to the next level", func(t *testing.T) {
		d := setupApprovalTest(t)
		a := d.pendingFor(d.calculationWith("10000", calculation.StatusPendingApproval), d.manager, 1)
		d.hierarchy.EXPECT().GetEscalationTarget(gomock.Any(), d.manager.String(), 1, d.department.String()).Return(d.director.String(), nil)
		expectTx(d.sqlMock, true)
		d.expectEvents(events.ApprovalEscalated)

		next, err := d.service.Escalate(context.Background(), uuid.NewString(), a.ID.String(), approval.ReasonRequest{Reason: "on leave"})

		assert.NoError(t, err)
		assert.Equal(t, 2, next.Level)
		assert.Equal(t, d.director.String(), next.ApproverID)
		assert.Equal(t, clock.Add(48*time.Hour).Format(time.RFC3339), next.ExpiresAt)
		stored := d.approvals.items[a.ID]
		assert.Equal(t, approval.StatusEscalated, stored.Status)
		assert.Equal(t, "on leave", stored.EscalationReason)
	})

	t.Run("without a target the approval stays pending", func(t *testing.T) {
		d := setupApprovalTest(t)
		a := d.pendingFor(d.calculationWith("10000", calculation.StatusPendingApproval), d.manager, 1)
		d.hierarchy.EXPECT().GetEscalationTarget(gomock.Any(), d.manager.String(), 1, d.department.String()).Return("", nil)
		expectTx(d.sqlMock, false)

		_, err := d.service.Escalate(context.Background(), uuid.NewString(), a.ID.String(), approval.ReasonRequest{Reason: "on leave"})

		assert.ErrorIs(t, err, approvalerrors.ErrNoEscalationTarget)
		assert.Equal(t, apperror.CodeNoApprover, apperror.CodeOf(err))
		assert.True(t, d.approvals.items[a.ID].IsPending())
	})
}

func TestService_EscalateOverdue(t *testing.T) {
	d := setupApprovalTest(t)
	c := d.calculationWith("10000", calculation.StatusPendingApproval)
	overdue := d.pendingFor(c, d.manager, 1)
	overdue.ExpiresAt = clock.Add(-time.Minute)
	d.approvals.items[overdue.ID] = overdue
	d.pendingFor(c, d.director, 1)

	d.hierarchy.EXPECT().GetEscalationTarget(gomock.Any(), d.manager.String(), 1, d.department.String()).Return(d.director.String(), nil)
	expectTx(d.sqlMock, true)
	d.expectEvents(events.ApprovalEscalated)

	res, err := d.service.EscalateOverdue(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, approval.StatusEscalated, d.approvals.items[overdue.ID].Status)
}

func TestService_ExpireStale(t *testing.T) {
	d := setupApprovalTest(t)
	c := d.calculationWith("300000", calculation.StatusPendingApproval)
	stale := d.pendingFor(c, d.manager, 3)
	stale.ExpiresAt = clock.Add(-time.Minute)
	d.approvals.items[stale.ID] = stale
	fresh := d.pendingFor(c, d.director, 3)

	expectTx(d.sqlMock, true)
	d.expectEvents(events.ApprovalExpired)

	res, err := d.service.ExpireStale(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, approval.StatusExpired, d.approvals.items[stale.ID].Status)
	assert.True(t, d.approvals.items[fresh.ID].IsPending())
	assert.Equal(t, calculation.StatusPendingApproval, d.calculations.items[c.ID].Status)
}

func TestService_ListPending(t *testing.T) {
	d := setupApprovalTest(t)
	c := d.calculationWith("10000", calculation.StatusPendingApproval)
	d.pendingFor(c, d.manager, 1)
	d.pendingFor(c, d.director, 1)

	items, total, err := d.service.ListPending(context.Background(), d.manager.String(), scope.Page{Number: 1, Size: 20})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	all, err := d.service.ListByCalculation(context.Background(), c.ID.String())
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_ClosedCalculationBlocksApprovalActions(t *testing.T) {
	t.Run("approve on a voided calculation", func(t *testing.T) {
		d := setupApprovalTest(t)
		c := d.calculationWith("75000", calculation.StatusVoided)
		a := d.pendingFor(c, d.manager, 1)
		expectTx(d.sqlMock, false)

		_, err := d.service.Approve(context.Background(), d.manager.String(), a.ID.String(), approval.DecisionRequest{})

		assert.ErrorIs(t, err, approvalerrors.ErrCalculationNotPending)
		assert.Equal(t, apperror.CodeInvalidState, apperror.CodeOf(err))
		assert.True(t, d.approvals.items[a.ID].IsPending())
		assert.Len(t, d.approvals.items, 1)
		assert.Equal(t, calculation.StatusVoided, d.calculations.items[c.ID].Status)
	})

	t.Run("reject on an approved calculation", func(t *testing.T) {
		d := setupApprovalTest(t)
		c := d.calculationWith("10000", calculation.StatusApproved)
		a := d.pendingFor(c, d.manager, 1)
		expectTx(d.sqlMock, false)

		_, err := d.service.Reject(context.Background(), d.manager.String(), a.ID.String(), approval.ReasonRequest{Reason: "late"})

		assert.ErrorIs(t, err, approvalerrors.ErrCalculationNotPending)
		assert.True(t, d.approvals.items[a.ID].IsPending())
	})

	t.Run("delegate on a voided calculation", func(t *testing.T) {
		d := setupApprovalTest(t)
		a := d.pendingFor(d.calculationWith("10000", calculation.StatusVoided), d.manager, 1)
		expectTx(d.sqlMock, false)

		_, err := d.service.Delegate(context.Background(), d.manager.String(), a.ID.String(), approval.DelegateRequest{ToEmployeeID: d.director.String()})

		assert.ErrorIs(t, err, approvalerrors.ErrCalculationNotPending)
		assert.Len(t, d.approvals.items, 1)
	})

	t.Run("overdue sweep leaves approvals of a voided calculation alone", func(t *testing.T) {
		d := setupApprovalTest(t)
		c := d.calculationWith("10000", calculation.StatusVoided)
		a := d.pendingFor(c, d.manager, 1)
		a.ExpiresAt = clock.Add(-time.Minute)
		d.approvals.items[a.ID] = a
		expectTx(d.sqlMock, false)

		res, err := d.service.EscalateOverdue(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
		if assert.Len(t, res.Errors, 1) {
			assert.Equal(t, apperror.CodeInvalidState, res.Errors[0].Code)
		}
		assert.True(t, d.approvals.items[a.ID].IsPending())
		assert.Len(t, d.approvals.items, 1)
	})
}

func TestService_EscalateOverdueRaces(t *testing.T) {
	t.Run("decision landing mid escalation wins", func(t *testing.T) {
		d := setupApprovalTest(t)
		c := d.calculationWith("10000", calculation.StatusPendingApproval)
		a := d.pendingFor(c, d.manager, 1)
		a.ExpiresAt = clock.Add(-time.Minute)
		d.approvals.items[a.ID] = a

		d.hierarchy.EXPECT().
			GetEscalationTarget(gomock.Any(), d.manager.String(), 1, d.department.String()).
			DoAndReturn(func(ctx context.Context, approverID string, level int, departmentID string) (string, error) {
				decided := d.approvals.items[a.ID]
				decided.Status = approval.StatusApproved
				d.approvals.items[a.ID] = decided
				closed := d.calculations.items[c.ID]
				closed.Status = calculation.StatusApproved
				closed.Version++
				d.calculations.items[c.ID] = closed
				return d.director.String(), nil
			})
		expectTx(d.sqlMock, false)

		res, err := d.service.EscalateOverdue(context.Background())

		assert.NoError(t, err)
		assert.Zero(t, res.Succeeded)
		assert.Equal(t, 1, res.Failed)
		if assert.Len(t, res.Errors, 1) {
			assert.Equal(t, apperror.CodeInvalidState, res.Errors[0].Code)
		}
		assert.Equal(t, approval.StatusApproved, d.approvals.items[a.ID].Status)
		pending, _ := d.approvals.FindPendingByCalculation(context.Background(), c.ID.String())
		assert.Empty(t, pending)
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("approval decided after listing is skipped", func(t *testing.T) {
		d := setupApprovalTest(t)
		c := d.calculationWith("10000", calculation.StatusPendingApproval)
		a := d.pendingFor(c, d.manager, 1)
		a.ExpiresAt = clock.Add(-time.Minute)
		d.approvals.items[a.ID] = a
		d.approvals.afterList = func() {
			decided := d.approvals.items[a.ID]
			decided.Status = approval.StatusApproved
			d.approvals.items[a.ID] = decided
		}
		expectTx(d.sqlMock, false)

		res, err := d.service.EscalateOverdue(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, 1, res.Skipped)
		assert.Zero(t, res.Failed)
		assert.Equal(t, approval.StatusApproved, d.approvals.items[a.ID].Status)
	})

	t.Run("expiry does not overwrite a decided approval", func(t *testing.T) {
		d := setupApprovalTest(t)
		c := d.calculationWith("300000", calculation.StatusPendingApproval)
		a := d.pendingFor(c, d.manager, 3)
		a.ExpiresAt = clock.Add(-time.Minute)
		d.approvals.items[a.ID] = a
		d.approvals.afterList = func() {
			decided := d.approvals.items[a.ID]
			decided.Status = approval.StatusRejected
			d.approvals.items[a.ID] = decided
		}
		expectTx(d.sqlMock, false)

		res, err := d.service.ExpireStale(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Skipped)
		assert.Equal(t, approval.StatusRejected, d.approvals.items[a.ID].Status)
	})
}

func TestService_EscalateBumpsCalculationVersion(t *testing.T) {
	d := setupApprovalTest(t)
	c := d.calculationWith("10000", calculation.StatusPendingApproval)
	a := d.pendingFor(c, d.manager, 1)
	d.hierarchy.EXPECT().GetEscalationTarget(gomock.Any(), d.manager.String(), 1, d.department.String()).Return(d.director.String(), nil)
	expectTx(d.sqlMock, true)
	d.expectEvents(events.ApprovalEscalated)

	_, err := d.service.Escalate(context.Background(), uuid.NewString(), a.ID.String(), approval.ReasonRequest{Reason: "on leave"})

	assert.NoError(t, err)
	assert.Equal(t, c.Version+1, d.calculations.items[c.ID].Version)
	assert.Equal(t, calculation.StatusPendingApproval, d.calculations.items[c.ID].Status)
}

func TestService_BulkApproveInterrupted(t *testing.T) {
	d := setupApprovalTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := d.pendingFor(d.calculationWith("10000", calculation.StatusPendingApproval), d.manager, 1)
	second := d.pendingFor(d.calculationWith("20000", calculation.StatusPendingApproval), d.manager, 1)

	d.sqlMock.ExpectBegin()
	d.sqlMock.ExpectExec("^SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectExec("^RELEASE SAVEPOINT bulk_item$").WillReturnResult(sqlmock.NewResult(0, 0))
	d.sqlMock.ExpectCommit()
	d.outbox.EXPECT().WithTx(gomock.Any()).Return(d.outbox)
	d.outbox.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, e kafka.OutboxEvent) error {
		cancel()
		return nil
	})

	res, err := d.service.BulkApprove(ctx, d.manager.String(), approval.BulkApproveRequest{
		ApprovalIDs: []string{first.ID.String(), second.ID.String()},
	})

	assert.ErrorIs(t, err, apperror.ErrBatchInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, []string{second.ID.String()}, res.Unprocessed)
	assert.Equal(t, approval.StatusApproved, d.approvals.items[first.ID].Status)
	assert.True(t, d.approvals.items[second.ID].IsPending())
	assert.NoError(t, d.sqlMock.ExpectationsWereMet())
}

func TestPendingCanceller_CancelPending(t *testing.T) {
	d := setupApprovalTest(t)
	c := d.calculationWith("75000", calculation.StatusVoided)
	first := d.pendingFor(c, d.manager, 1)
	second := d.pendingFor(c, d.director, 2)
	other := d.pendingFor(d.calculationWith("1000", calculation.StatusPendingApproval), d.manager, 1)

	n, err := approval.NewPendingCanceller(d.approvals).CancelPending(context.Background(), nil, c.ID.String(), "calculation voided")

	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, approval.StatusCancelled, d.approvals.items[first.ID].Status)
	assert.Equal(t, approval.StatusCancelled, d.approvals.items[second.ID].Status)
	assert.True(t, d.approvals.items[other.ID].IsPending())
}
