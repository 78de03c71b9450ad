package plan

import (
	"context"
	"database/sql"

	"go-incentive/internal/shared/dbtx"
	"go-incentive/internal/shared/scope"

	"gorm.io/gorm"
)

//go:generate mockgen -source=plan_repo.go -destination=mock/plan_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, p *Plan) error
	Update(ctx context.Context, p *Plan) error
	UpdateStatus(ctx context.Context, p *Plan) error
	FindByID(ctx context.Context, id string) (*Plan, error)
	FindAll(ctx context.Context, status string, page scope.Page) ([]Plan, int64, error)
	FindActive(ctx context.Context) ([]Plan, error)
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

func (r *repository) Create(ctx context.Context, p *Plan) error {
	return mapRepositoryError(r.db.WithContext(ctx).Create(p).Error)
}

// Update rewrites the plan row and replaces its slabs.
func (r *repository) Update(ctx context.Context, p *Plan) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Slabs").Save(p).Error; err != nil {
		return mapRepositoryError(err)
	}
	if err := db.Where("plan_id = ?", p.ID).Delete(&Slab{}).Error; err != nil {
		return err
	}
	if len(p.Slabs) == 0 {
		return nil
	}
	return db.Create(&p.Slabs).Error
}

func (r *repository) UpdateStatus(ctx context.Context, p *Plan) error {
	return r.db.WithContext(ctx).
		Model(p).
		Select("status", "activated_at", "updated_at").
		Updates(p).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Plan, error) {
	var p Plan
	err := r.db.WithContext(ctx).
		Preload("Slabs", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &p, nil
}

func (r *repository) FindAll(ctx context.Context, status string, page scope.Page) ([]Plan, int64, error) {
	var (
		plans []Plan
		total int64
	)
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&Plan{}).Scopes(scope.Status(status))
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query().
		Preload("Slabs", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Scopes(scope.Paginate(page)).
		Order("effective_from DESC, code ASC").
		Find(&plans).Error
	return plans, total, err
}

func (r *repository) FindActive(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusActive).
		Order("code ASC").
		Find(&plans).Error
	return plans, err
}
