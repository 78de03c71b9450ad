package assignment

type AssignPlanRequest struct {
	EmployeeID    string `json:"employee_id" binding:"required,uuid"`
	PlanID        string `json:"plan_id" binding:"required,uuid"`
	EffectiveFrom string `json:"effective_from"`
	EffectiveTo   string `json:"effective_to"`
}

type AssignmentResponse struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	PlanID        string  `json:"plan_id"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   string  `json:"effective_to"`
	TotalDays     int     `json:"total_days"`
	Status        string  `json:"status"`
	AssignedBy    string  `json:"assigned_by"`
	RemovedAt     *string `json:"removed_at,omitempty"`
}
