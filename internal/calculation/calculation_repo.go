package calculation

import (
	"context"
	"database/sql"
	"time"

	"go-incentive/internal/shared/apperror"
	"go-incentive/internal/shared/dbtx"
	"go-incentive/internal/shared/scope"

	"gorm.io/gorm"
)

//go:generate mockgen -source=calculation_repo.go -destination=mock/calculation_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, c *Calculation) error
	Update(ctx context.Context, c *Calculation) error
	FindByID(ctx context.Context, id string) (*Calculation, error)
	FindAll(ctx context.Context, filter ListFilter, page scope.Page) ([]Calculation, int64, error)
	ExistsActive(ctx context.Context, employeeID, planID string, start, end time.Time) (bool, error)
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

func (r *repository) Create(ctx context.Context, c *Calculation) error {
	c.Version = 1
	return mapRepositoryError(r.db.WithContext(ctx).Create(c).Error)
}

// Update saves c only if nobody else wrote it since it was read, and bumps
// its version.
func (r *repository) Update(ctx context.Context, c *Calculation) error {
	read := c.Version
	c.Version = read + 1

	res := r.db.WithContext(ctx).
		Model(c).
		Where("version = ?", read).
		Select("*").
		Omit("id", "created_at").
		Updates(c)
	if res.Error != nil {
		c.Version = read
		return mapRepositoryError(res.Error)
	}
	if res.RowsAffected == 0 {
		c.Version = read
		return apperror.ErrConcurrentModification
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Calculation, error) {
	var c Calculation
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, mapRepositoryError(err)
	}
	return &c, nil
}

func (r *repository) FindAll(ctx context.Context, filter ListFilter, page scope.Page) ([]Calculation, int64, error) {
	var (
		items []Calculation
		total int64
	)
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&Calculation{}).Scopes(scope.Status(filter.Status))
		if filter.EmployeeID != "" {
			q = q.Where("employee_id = ?", filter.EmployeeID)
		}
		if filter.PlanID != "" {
			q = q.Where("plan_id = ?", filter.PlanID)
		}
		return q
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query().
		Scopes(scope.Paginate(page)).
		Order("period_start DESC, created_at DESC").
		Find(&items).Error
	return items, total, err
}

// ExistsActive reports a non-voided calculation for the same employee, plan
// and period.
func (r *repository) ExistsActive(ctx context.Context, employeeID, planID string, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Calculation{}).
		Where("employee_id = ? AND plan_id = ? AND period_start = ? AND period_end = ? AND status <> ?",
			employeeID, planID, start, end, StatusVoided).
		Count(&count).Error
	return count > 0, err
}
