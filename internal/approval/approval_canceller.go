package approval

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingCanceller closes the open approvals of a calculation that left the
// approval flow from outside it, e.g. when it is voided.
type PendingCanceller struct {
	repo   Repository
	now    func() time.Time
	logger *zap.Logger
}

func NewPendingCanceller(repo Repository, logger ...*zap.Logger) *PendingCanceller {
	l := zap.L().Named("approval.canceller")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.canceller")
	}
	return &PendingCanceller{repo: repo, now: time.Now, logger: l}
}

// CancelPending cancels every pending approval of the calculation on tx and
// returns how many were closed.
func (c *PendingCanceller) CancelPending(ctx context.Context, tx *sql.Tx, calculationID, reason string) (int, error) {
	n, err := cancelPending(ctx, c.repo.WithTx(tx), calculationID, uuid.Nil, reason, c.now().UTC())
	if err != nil {
		c.logger.Error("cancel pending approvals failed",
			zap.String("calculation_id", calculationID),
			zap.Error(err),
		)
		return 0, err
	}
	if n > 0 {
		c.logger.Info("pending approvals cancelled",
			zap.String("calculation_id", calculationID),
			zap.Int("count", n),
		)
	}
	return n, nil
}

func cancelPending(ctx context.Context, repo Repository, calculationID string, except uuid.UUID, reason string, now time.Time) (int, error) {
	pending, err := repo.FindPendingByCalculation(ctx, calculationID)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range pending {
		a := &pending[i]
		if a.ID == except {
			continue
		}
		if err := a.Cancel(reason, now); err != nil {
			return n, err
		}
		if err := repo.Update(ctx, a); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
