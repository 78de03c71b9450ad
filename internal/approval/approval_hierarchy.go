package approval

import (
	"context"

	"go-incentive/internal/department"
	"go-incentive/internal/employee"
)

// OrgHierarchy resolves who approves at a level. Both methods return "" when
// nobody is configured.
//
//go:generate mockgen -source=approval_hierarchy.go -destination=mock/approval_hierarchy_mock.go -package=mock
type OrgHierarchy interface {
	GetApproverForLevel(ctx context.Context, level int, departmentID string) (string, error)
	GetEscalationTarget(ctx context.Context, currentApproverID string, level int, departmentID string) (string, error)
}

type hierarchy struct {
	departments department.Repository
	employees   employee.Repository
}

func NewOrgHierarchy(departments department.Repository, employees employee.Repository) OrgHierarchy {
	return &hierarchy{departments: departments, employees: employees}
}

func (h *hierarchy) GetApproverForLevel(ctx context.Context, level int, departmentID string) (string, error) {
	return h.departments.FindApproverID(ctx, departmentID, level)
}

// GetEscalationTarget prefers the department's next-level approver and falls
// back to the current approver's manager.
func (h *hierarchy) GetEscalationTarget(ctx context.Context, currentApproverID string, level int, departmentID string) (string, error) {
	next, err := h.departments.FindApproverID(ctx, departmentID, level+1)
	if err != nil {
		return "", err
	}
	if next != "" && next != currentApproverID {
		return next, nil
	}

	manager, err := h.employees.FindManagerID(ctx, currentApproverID)
	if err != nil {
		return "", err
	}
	if manager == currentApproverID {
		return "", nil
	}
	return manager, nil
}
