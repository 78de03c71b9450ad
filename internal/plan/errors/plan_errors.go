package planerrors

import (
	"net/http"

	"go-incentive/internal/shared/apperror"
)

var (
	ErrPlanNotFound = apperror.New(
		apperror.CodeNotFound,
		"incentive plan not found",
		http.StatusNotFound,
	)
	ErrDuplicatePlanCode = apperror.New(
		apperror.CodeConflict,
		"incentive plan code already exists",
		http.StatusConflict,
	)
	ErrInvalidPlanID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid plan id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDecimal = apperror.New(
		apperror.CodeInvalidInput,
		"invalid decimal value",
		http.StatusBadRequest,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid plan status transition",
		http.StatusBadRequest,
	)
	ErrOnlyDraftEditable = apperror.New(
		apperror.CodeInvalidState,
		"plan can only be edited while status is DRAFT",
		http.StatusBadRequest,
	)
	ErrPlanNotActivatable = apperror.New(
		apperror.CodeDomainRuleViolation,
		"plan configuration has errors and cannot be activated",
		http.StatusUnprocessableEntity,
	)
	ErrInvalidStatusFilter = apperror.New(
		apperror.CodeInvalidInput,
		"invalid plan status filter",
		http.StatusBadRequest,
	)
)
