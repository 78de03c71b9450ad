package calculation

import "github.com/shopspring/decimal"

type CalculateRequest struct {
	EmployeeID  string          `json:"employee_id" binding:"required,uuid"`
	PlanID      string          `json:"plan_id" binding:"required,uuid"`
	PeriodStart string          `json:"period_start" binding:"required"`
	PeriodEnd   string          `json:"period_end" binding:"required"`
	ActualValue decimal.Decimal `json:"actual_value"`
}

// Key identifies the item in batch results as employee_id/plan_id/period_start.
func (r CalculateRequest) Key() string {
	return r.EmployeeID + "/" + r.PlanID + "/" + r.PeriodStart
}

type BulkCalculateRequest struct {
	Items []CalculateRequest `json:"items" binding:"required,min=1,max=500,dive"`
}

type RecalculateRequest struct {
	ActualValue  *decimal.Decimal `json:"actual_value"`
	EligibleDays *int             `json:"eligible_days"`
	TotalDays    *int             `json:"total_days"`
}

type AdjustRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type MarkPaidRequest struct {
	PaymentRef string `json:"payment_ref" binding:"required,max=100"`
}

type ListFilter struct {
	EmployeeID string
	PlanID     string
	Status     string
}

type CalculationResponse struct {
	ID                string           `json:"id"`
	ReferenceNumber   string           `json:"reference_number"`
	EmployeeID        string           `json:"employee_id"`
	PlanID            string           `json:"plan_id"`
	PeriodStart       string           `json:"period_start"`
	PeriodEnd         string           `json:"period_end"`
	TargetValue       decimal.Decimal  `json:"target_value"`
	ActualValue       decimal.Decimal  `json:"actual_value"`
	Achievement       decimal.Decimal  `json:"achievement"`
	ProrataFactor     decimal.Decimal  `json:"prorata_factor"`
	GrossAmount       decimal.Decimal  `json:"gross_amount"`
	NetAmount         decimal.Decimal  `json:"net_amount"`
	Currency          string           `json:"currency"`
	AppliedSlabID     *string          `json:"applied_slab_id,omitempty"`
	Message           string           `json:"message,omitempty"`
	Status            string           `json:"status"`
	IsAdjusted        bool             `json:"is_adjusted"`
	OriginalNetAmount *decimal.Decimal `json:"original_net_amount,omitempty"`
	AdjustmentReason  string           `json:"adjustment_reason,omitempty"`
	RejectionReason   string           `json:"rejection_reason,omitempty"`
	PaymentRef        string           `json:"payment_ref,omitempty"`
	VoidReason        string           `json:"void_reason,omitempty"`
	DeferReason       string           `json:"defer_reason,omitempty"`
	Version           int              `json:"version"`
}

// BatchError identifies one failed item of a batch.
type BatchError struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type BatchResult struct {
	SuccessCount int                   `json:"success_count"`
	FailureCount int                   `json:"failure_count"`
	Items        []CalculationResponse `json:"items"`
	Errors       []BatchError          `json:"errors"`
	Unprocessed  []string              `json:"unprocessed,omitempty"`
}

type DeferRequest struct {
	EmployeeID  string `json:"employee_id" binding:"required,uuid"`
	PlanID      string `json:"plan_id" binding:"required,uuid"`
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
	Reason      string `json:"reason" binding:"required,max=500"`
}
