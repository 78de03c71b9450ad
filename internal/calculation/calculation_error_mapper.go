package calculation

import (
	"errors"

	calculationerrors "go-incentive/internal/calculation/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const activePeriodConstraint = "uq_incentive_calculation_active_period"

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return calculationerrors.ErrCalculationNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == activePeriodConstraint {
			return calculationerrors.ErrDuplicateCalculation
		}
	}

	return err
}
