package apperror

import "net/http"

var (
	ErrNotFound = New(
		CodeNotFound,
		"Resource not found",
		http.StatusNotFound,
	)

	ErrForbidden = New(
		CodeForbidden,
		"You do not have permission to access this resource",
		http.StatusForbidden,
	)

	ErrInternal = New(
		CodeInternalError,
		"An unexpected error occurred",
		http.StatusInternalServerError,
	)

	ErrUnauthorized = New(
		CodeUnauthorized,
		"Authentication is required",
		http.StatusUnauthorized,
	)

	ErrInvalidInput = New(
		CodeInvalidInput,
		"The provided input is invalid",
		http.StatusBadRequest,
	)

	ErrConcurrentModification = New(
		CodeConcurrentModification,
		"The record was modified by another request, please retry",
		http.StatusConflict,
	)

	ErrBatchInterrupted = New(
		CodeBatchInterrupted,
		"The batch stopped before every item was processed",
		http.StatusRequestTimeout,
	)
)

// BatchInterrupted reports a batch cut short by cause. Items processed so far
// are kept; unprocessed lists the identifiers that were never attempted.
func BatchInterrupted(cause error, unprocessed []string) *AppError {
	return ErrBatchInterrupted.WithCause(cause).WithDetails(map[string]any{"unprocessed": unprocessed})
}

func RequiredField(field string) *AppError {
	return New(CodeInvalidInput, field+" is required", http.StatusBadRequest)
}

func InvalidField(field string) *AppError {
	return New(CodeInvalidInput, field+" is invalid", http.StatusBadRequest)
}
