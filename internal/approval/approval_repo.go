package approval

import (
	"context"
	"database/sql"
	"errors"
	"time"

	approvalerrors "go-incentive/internal/approval/errors"
	"go-incentive/internal/shared/dbtx"
	"go-incentive/internal/shared/scope"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=approval_repo.go -destination=mock/approval_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, a *Approval) error
	// Update persists a decision on an approval that is still PENDING in
	// storage and fails with ErrInvalidApprovalState otherwise.
	Update(ctx context.Context, a *Approval) error
	FindByID(ctx context.Context, id string) (*Approval, error)
	// FindByIDForUpdate reads the approval and locks its row until the
	// surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*Approval, error)
	FindByCalculation(ctx context.Context, calculationID string) ([]Approval, error)
	FindPendingByCalculation(ctx context.Context, calculationID string) ([]Approval, error)
	FindPendingByApprover(ctx context.Context, approverID string, page scope.Page) ([]Approval, int64, error)
	// FindOverdue lists pending approvals expired by now below maxLevel.
	FindOverdue(ctx context.Context, now time.Time, maxLevel, limit int) ([]Approval, error)
	// FindExpired lists pending approvals that expired on or before cutoff.
	FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]Approval, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: dbtx.Bind(r.db, tx)}
}

func (r *repository) Create(ctx context.Context, a *Approval) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) Update(ctx context.Context, a *Approval) error {
	res := r.db.WithContext(ctx).
		Model(a).
		Where("status = ?", StatusPending).
		Select("*").
		Omit("id", "created_at").
		Updates(a)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return approvalerrors.ErrInvalidApprovalState
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Approval, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*Approval, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) find(db *gorm.DB, id string) (*Approval, error) {
	var a Approval
	err := db.First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, approvalerrors.ErrApprovalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) FindByCalculation(ctx context.Context, calculationID string) ([]Approval, error) {
	var items []Approval
	err := r.db.WithContext(ctx).
		Where("calculation_id = ?", calculationID).
		Order("level ASC, requested_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) FindPendingByCalculation(ctx context.Context, calculationID string) ([]Approval, error) {
	var items []Approval
	err := r.db.WithContext(ctx).
		Where("calculation_id = ? AND status = ?", calculationID, StatusPending).
		Find(&items).Error
	return items, err
}

func (r *repository) FindPendingByApprover(ctx context.Context, approverID string, page scope.Page) ([]Approval, int64, error) {
	var (
		items []Approval
		total int64
	)
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&Approval{}).
			Where("approver_id = ? AND status = ?", approverID, StatusPending)
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query().
		Scopes(scope.Paginate(page)).
		Order("expires_at ASC").
		Find(&items).Error
	return items, total, err
}

func (r *repository) FindOverdue(ctx context.Context, now time.Time, maxLevel, limit int) ([]Approval, error) {
	var items []Approval
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ? AND level < ?", StatusPending, now, maxLevel).
		Order("expires_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repository) FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]Approval, error) {
	var items []Approval
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", StatusPending, cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
