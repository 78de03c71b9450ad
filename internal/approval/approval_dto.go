package approval

type SubmitRequest struct {
	CalculationID string `json:"calculation_id" binding:"required,uuid"`
}

type DecisionRequest struct {
	Comments string `json:"comments" binding:"max=1000"`
}

type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

type DelegateRequest struct {
	ToEmployeeID string `json:"to_employee_id" binding:"required,uuid"`
}

type BulkApproveRequest struct {
	ApprovalIDs []string `json:"approval_ids" binding:"required,min=1,max=200"`
	Comments    string   `json:"comments" binding:"max=1000"`
}

type ApprovalResponse struct {
	ID               string  `json:"id"`
	CalculationID    string  `json:"calculation_id"`
	ApproverID       string  `json:"approver_id"`
	Level            int     `json:"level"`
	LevelName        string  `json:"level_name"`
	Status           string  `json:"status"`
	RequestedAt      string  `json:"requested_at"`
	ExpiresAt        string  `json:"expires_at"`
	DecidedAt        *string `json:"decided_at,omitempty"`
	Comments         string  `json:"comments,omitempty"`
	DelegatedTo      *string `json:"delegated_to,omitempty"`
	EscalatedTo      *string `json:"escalated_to,omitempty"`
	EscalationReason string  `json:"escalation_reason,omitempty"`
	PreviousID       *string `json:"previous_id,omitempty"`
}

// DecisionResponse is the outcome of approving or rejecting. Next is set
// when the amount needs another level.
type DecisionResponse struct {
	Approval          ApprovalResponse  `json:"approval"`
	CalculationStatus string            `json:"calculation_status"`
	Next              *ApprovalResponse `json:"next,omitempty"`
}

type BatchError struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type BatchResult struct {
	SuccessCount int                `json:"success_count"`
	FailureCount int                `json:"failure_count"`
	Items        []DecisionResponse `json:"items"`
	Errors       []BatchError       `json:"errors"`
	Unprocessed  []string           `json:"unprocessed,omitempty"`
}

// SweepResult summarises one escalation or expiration run.
type SweepResult struct {
	Processed int          `json:"processed"`
	Succeeded int          `json:"succeeded"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Errors    []BatchError `json:"errors"`
}

type SubmitResponse struct {
	CalculationID     string            `json:"calculation_id"`
	CalculationStatus string            `json:"calculation_status"`
	Requirement       Requirement       `json:"requirement"`
	Approval          *ApprovalResponse `json:"approval,omitempty"`
}
