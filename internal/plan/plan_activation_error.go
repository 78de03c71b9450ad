package plan

import (
	"fmt"

	planerrors "go-incentive/internal/plan/errors"
)

// ActivationError carries the validation issues that blocked activation.
type ActivationError struct {
	PlanID string
	Result ValidationResult
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("plan %s cannot be activated: %d validation error(s)", e.PlanID, len(e.Result.Errors))
}

func (e *ActivationError) Unwrap() error {
	return planerrors.ErrPlanNotActivatable
}

func (e *ActivationError) ErrorDetails() any {
	return e.Result.Errors
}
