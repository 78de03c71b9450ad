package assignment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	assignmenterrors "go-incentive/internal/assignment/errors"
	"go-incentive/internal/shared/dbtx"

	"gorm.io/gorm"
)

//go:generate mockgen -source=assignment_repo.go -destination=mock/assignment_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, a *Assignment) error
	Update(ctx context.Context, a *Assignment) error
	FindByID(ctx context.Context, id string) (*Assignment, error)
	FindByEmployee(ctx context.Context, employeeID string) ([]Assignment, error)
	HasOverlappingPeriod(ctx context.Context, employeeID, planID string, startDate, endDate time.Time, excludeID *string) (bool, error)
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

func (r *repository) Create(ctx context.Context, a *Assignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) Update(ctx context.Context, a *Assignment) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Assignment, error) {
	var a Assignment
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, assignmenterrors.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) FindByEmployee(ctx context.Context, employeeID string) ([]Assignment, error) {
	var out []Assignment
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("effective_from DESC").
		Find(&out).Error
	return out, err
}

// HasOverlappingPeriod reports an active assignment of the same employee and
// plan sharing at least one day with [startDate, endDate].
func (r *repository) HasOverlappingPeriod(ctx context.Context, employeeID, planID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&Assignment{}).
		Where("employee_id = ?", employeeID).
		Where("plan_id = ?", planID).
		Where("status = ?", StatusActive).
		Where("NOT (effective_to < ? OR effective_from > ?)", startDate, endDate)

	if excludeID != nil && *excludeID != "" {
		db = db.Where("id <> ?", *excludeID)
	}

	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}
