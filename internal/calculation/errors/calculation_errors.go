package calculationerrors

import (
	"net/http"

	"go-incentive/internal/shared/apperror"
)

var (
	ErrCalculationNotFound = apperror.New(
		apperror.CodeNotFound,
		"incentive calculation not found",
		http.StatusNotFound,
	)
	ErrDuplicateCalculation = apperror.New(
		apperror.CodeConflict,
		"a calculation already exists for this employee, plan and period",
		http.StatusConflict,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid calculation status transition",
		http.StatusBadRequest,
	)
	ErrNotAdjustable = apperror.New(
		apperror.CodeInvalidState,
		"calculation can only be adjusted while CALCULATED or APPROVED",
		http.StatusBadRequest,
	)
	ErrUnsupportedPlanType = apperror.New(
		apperror.CodeConfigurationError,
		"plan type has no calculation formula",
		http.StatusUnprocessableEntity,
	)
	ErrInvalidProrataInput = apperror.New(
		apperror.CodeConfigurationError,
		"prorata requires 0 < eligible days <= total days",
		http.StatusUnprocessableEntity,
	)
	ErrSalaryCurrencyMismatch = apperror.New(
		apperror.CodeConfigurationError,
		"employee salary currency differs from plan currency",
		http.StatusUnprocessableEntity,
	)
	ErrEmployeeNotAssigned = apperror.New(
		apperror.CodeDomainRuleViolation,
		"employee is not assigned to the plan for this period",
		http.StatusUnprocessableEntity,
	)
	ErrInvalidAdjustment = apperror.New(
		apperror.CodeInvalidInput,
		"adjusted amount must be non-negative",
		http.StatusBadRequest,
	)
	ErrInvalidCalculationID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid calculation id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidPeriod = apperror.New(
		apperror.CodeInvalidInput,
		"invalid calculation period, expected YYYY-MM-DD with start on or before end",
		http.StatusBadRequest,
	)
	ErrInvalidStatusFilter = apperror.New(
		apperror.CodeInvalidInput,
		"invalid calculation status filter",
		http.StatusBadRequest,
	)
)
