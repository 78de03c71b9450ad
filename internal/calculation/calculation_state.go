package calculation

import (
	"fmt"

	calculationerrors "go-incentive/internal/calculation/errors"
)

// recalculable statuses may be run through the engine again.
var recalculable = []Status{
	StatusCalculated, StatusBelowThreshold, StatusProrated, StatusCapped,
	StatusRejected, StatusDeferred, StatusIneligible,
}

var allowedTransitions = map[Status][]Status{
	StatusPending:         {StatusCalculated, StatusIneligible, StatusDeferred, StatusVoided},
	StatusCalculated:      {StatusCalculated, StatusBelowThreshold, StatusProrated, StatusCapped, StatusPendingApproval, StatusIneligible, StatusVoided},
	StatusBelowThreshold:  {StatusCalculated, StatusIneligible, StatusVoided},
	StatusProrated:        {StatusCalculated, StatusCapped, StatusPendingApproval, StatusIneligible, StatusVoided},
	StatusCapped:          {StatusCalculated, StatusPendingApproval, StatusIneligible, StatusVoided},
	StatusPendingApproval: {StatusApproved, StatusRejected, StatusVoided},
	StatusApproved:        {StatusPaid, StatusVoided},
	StatusRejected:        {StatusCalculated, StatusIneligible, StatusVoided},
	StatusDeferred:        {StatusPending, StatusCalculated, StatusIneligible, StatusVoided},
	StatusIneligible:      {StatusPending, StatusCalculated, StatusIneligible, StatusVoided},
	StatusPaid:            {},
	StatusVoided:          {},
}

func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsRecalculable(s Status) bool {
	for _, r := range recalculable {
		if r == s {
			return true
		}
	}
	return false
}

func IsKnownStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (c *Calculation) transitionTo(to Status) error {
	if !CanTransition(c.Status, to) {
		return &TransitionError{CalculationID: c.ID.String(), From: c.Status, To: to}
	}
	c.Status = to
	return nil
}

// TransitionError is returned for an illegal status change. It unwraps to an
// INVALID_STATE AppError.
type TransitionError struct {
	CalculationID string
	From          Status
	To            Status
	Op            string
	cause         error
}

func (e *TransitionError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("calculation %s cannot %s while %s", e.CalculationID, e.Op, e.From)
	}
	return fmt.Sprintf("calculation %s cannot move from %s to %s", e.CalculationID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return calculationerrors.ErrInvalidStatusTransition
}
