package employee

import (
	"context"
	"database/sql"

	"go-incentive/internal/shared/dbtx"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindManagerID(ctx context.Context, id string) (string, error)
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

func (r *repository) FindByID(ctx context.Context, id string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &e, nil
}

// FindManagerID returns "" when the employee has no manager.
func (r *repository) FindManagerID(ctx context.Context, id string) (string, error) {
	e, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if e.ManagerID == nil {
		return "", nil
	}
	return e.ManagerID.String(), nil
}
