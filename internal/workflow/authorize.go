package workflow

import "github.com/expenseflow/expenseflow/internal/models"

// CanAct reports whether the principal may decide the given instance.
// Authorization is role-based, not identity-based: any user holding
// the step's approver role may act on any pending instance requiring
// that role.
func CanAct(principal models.Principal, instance *models.ExpenseApproval) bool {
	return principal.Role == instance.ApproverRole
}

// Authorize runs the gate and returns an UnauthorizedError carrying
// the required role when it denies.
func Authorize(principal models.Principal, instance *models.ExpenseApproval) error {
	if CanAct(principal, instance) {
		return nil
	}
	return &UnauthorizedError{
		RequiredRole: instance.ApproverRole,
		ActualRole:   principal.Role,
	}
}
