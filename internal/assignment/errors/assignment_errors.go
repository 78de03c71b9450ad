package assignmenterrors

import (
	"net/http"

	"go-incentive/internal/shared/apperror"
)

var (
	ErrAssignmentNotFound = apperror.New(
		apperror.CodeNotFound,
		"plan assignment not found",
		http.StatusNotFound,
	)
	ErrAssignmentOverlap = apperror.New(
		apperror.CodeConflict,
		"employee already has an assignment to this plan in the given period",
		http.StatusConflict,
	)
	ErrOutsidePlanPeriod = apperror.New(
		apperror.CodeInvalidInput,
		"assignment period must fall within the plan effective period",
		http.StatusBadRequest,
	)
	ErrPlanNotAssignable = apperror.New(
		apperror.CodeInvalidState,
		"plan must be DRAFT or ACTIVE to accept assignments",
		http.StatusBadRequest,
	)
	ErrAlreadyRemoved = apperror.New(
		apperror.CodeInvalidState,
		"plan assignment is already removed",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"end date must not be before start date",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidAssignmentID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid assignment id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
)
