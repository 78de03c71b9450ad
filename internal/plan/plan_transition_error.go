package plan

import (
	"fmt"

	planerrors "go-incentive/internal/plan/errors"
)

type TransitionError struct {
	PlanID string
	From   Status
	To     Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("plan %s cannot move from %s to %s", e.PlanID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return planerrors.ErrInvalidStatusTransition
}
