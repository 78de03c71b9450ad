package apperror

const (
	// Client errors (4xx)
	CodeInvalidInput           = "INVALID_INPUT"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeInvalidState           = "INVALID_STATE"
	CodeDomainRuleViolation    = "DOMAIN_RULE_VIOLATION"
	CodeNoApprover             = "NO_APPROVER"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeBatchInterrupted       = "BATCH_INTERRUPTED"

	// Server errors (5xx)
	CodeConfigurationError = "CONFIGURATION_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)
