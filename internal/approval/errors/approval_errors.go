package approvalerrors

import (
	"net/http"

	"go-incentive/internal/shared/apperror"
)

var (
	ErrApprovalNotFound = apperror.New(
		apperror.CodeNotFound,
		"approval not found",
		http.StatusNotFound,
	)
	ErrInvalidApprovalState = apperror.New(
		apperror.CodeInvalidState,
		"approval is no longer pending",
		http.StatusBadRequest,
	)
	ErrCalculationNotPending = apperror.New(
		apperror.CodeInvalidState,
		"calculation is not awaiting approval",
		http.StatusConflict,
	)
	ErrNotApprover = apperror.New(
		apperror.CodeForbidden,
		"only the assigned approver can act on this approval",
		http.StatusForbidden,
	)
	ErrNoApprover = apperror.New(
		apperror.CodeNoApprover,
		"no approver configured for the required level",
		http.StatusUnprocessableEntity,
	)
	ErrNoEscalationTarget = apperror.New(
		apperror.CodeNoApprover,
		"no escalation target available",
		http.StatusUnprocessableEntity,
	)
	ErrSelfDelegation = apperror.New(
		apperror.CodeInvalidInput,
		"cannot delegate an approval to its current approver",
		http.StatusBadRequest,
	)
	ErrInvalidApprovalID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid approval id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidCalculationID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid calculation id",
		http.StatusBadRequest,
	)
)
