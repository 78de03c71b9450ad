package department

import (
	"context"
	"database/sql"
	"errors"

	departmenterrors "go-incentive/internal/department/errors"
	"go-incentive/internal/shared/dbtx"

	"gorm.io/gorm"
)

//go:generate mockgen -source=department_repo.go -destination=mock/department_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindByID(ctx context.Context, id string) (*Department, error)
	// FindApproverID returns "" when no approver is configured for the level.
	FindApproverID(ctx context.Context, departmentID string, level int) (string, error)
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

func (r *repository) FindByID(ctx context.Context, id string) (*Department, error) {
	var d Department
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, departmenterrors.ErrDepartmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) FindApproverID(ctx context.Context, departmentID string, level int) (string, error) {
	var a Approver
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Where("level = ?", level).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return a.ApproverID.String(), nil
}
