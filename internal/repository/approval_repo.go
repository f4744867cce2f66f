package repository

import (
	"database/sql"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"go.uber.org/zap"
)

// ApprovalRepository is the approval instance tracker: the engine's
// state store of per-expense, per-step progress records.
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) *ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// CreatePending inserts a new instance in state Pending. A second
// insert for the same (expense, step) pair hits the unique index and
// fails with ErrConflict, which makes retried requests harmless.
func (r *ApprovalRepository) CreatePending(tx *sql.Tx, expenseID, stepID int64) (int64, error) {
	result, err := conn(r.db, tx).Exec(
		`INSERT INTO expense_approvals (expense_id, step_id, status) VALUES (?, ?, ?)`,
		expenseID, stepID, models.StatusPending,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, workflow.ErrConflict
		}
		r.logger.Error("Failed to create approval instance",
			zap.Int64("expense_id", expenseID),
			zap.Int64("step_id", stepID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to create approval instance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

const instanceSelect = `
	SELECT a.id, a.expense_id, a.step_id, a.approver_id, a.status, a.comments,
		s.step_number, s.approver_role, s.rule_id,
		a.created_at, a.updated_at
	FROM expense_approvals a
	JOIN approval_steps s ON s.id = a.step_id
`

// GetByID returns the instance joined with its step, or ErrNotFound
func (r *ApprovalRepository) GetByID(id int64) (*models.ExpenseApproval, error) {
	instance, err := scanInstance(r.db.QueryRow(instanceSelect+`WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get approval instance", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval instance: %w", err)
	}
	return instance, nil
}

// RecordDecision moves a Pending instance to a terminal status. The
// WHERE status = 'Pending' clause is a compare-and-set: when the row
// was already decided the update affects zero rows and the caller gets
// ErrInvalidState, so two racing decisions cannot both succeed.
func (r *ApprovalRepository) RecordDecision(tx *sql.Tx, id int64, status string, approverID int64, comments string) error {
	result, err := conn(r.db, tx).Exec(
		`UPDATE expense_approvals
		 SET status = ?, approver_id = ?, comments = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		status, approverID, comments, id, models.StatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to record decision",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to record decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return workflow.ErrInvalidState
	}

	return nil
}

// ActivePendingForExpense returns the one Pending instance of an
// expense, or nil when none is active.
func (r *ApprovalRepository) ActivePendingForExpense(expenseID int64) (*models.ExpenseApproval, error) {
	instance, err := scanInstance(r.db.QueryRow(
		instanceSelect+`WHERE a.expense_id = ? AND a.status = ?`,
		expenseID, models.StatusPending,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get active instance", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get active instance: %w", err)
	}
	return instance, nil
}

// ListPendingForRole powers the approver inbox: Pending instances
// whose step requires the given role, scoped to the approver's
// company through the owning rule, newest first.
func (r *ApprovalRepository) ListPendingForRole(role string, companyID int64) ([]*models.PendingApproval, error) {
	rows, err := r.db.Query(
		`SELECT a.id, e.id, u.email, e.category, e.amount, e.currency, e.description, e.expense_date, e.created_at
		 FROM expense_approvals a
		 JOIN approval_steps s ON s.id = a.step_id
		 JOIN approval_rules r ON r.id = s.rule_id
		 JOIN expenses e ON e.id = a.expense_id
		 JOIN users u ON u.id = e.employee_id
		 WHERE a.status = ? AND s.approver_role = ? AND r.company_id = ?
		 ORDER BY e.created_at DESC, a.id DESC`,
		models.StatusPending, role, companyID,
	)
	if err != nil {
		r.logger.Error("Failed to list pending approvals",
			zap.String("role", role),
			zap.Int64("company_id", companyID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	defer rows.Close()

	var pending []*models.PendingApproval
	for rows.Next() {
		var item models.PendingApproval
		if err := rows.Scan(
			&item.InstanceID,
			&item.ExpenseID,
			&item.EmployeeEmail,
			&item.Category,
			&item.Amount,
			&item.Currency,
			&item.Description,
			&item.ExpenseDate,
			&item.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}
		pending = append(pending, &item)
	}

	return pending, rows.Err()
}

// ListByExpense returns an expense's full approval history ordered by
// step number
func (r *ApprovalRepository) ListByExpense(expenseID int64) ([]*models.ExpenseApproval, error) {
	rows, err := r.db.Query(instanceSelect+`WHERE a.expense_id = ? ORDER BY s.step_number`, expenseID)
	if err != nil {
		r.logger.Error("Failed to list approvals", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()

	var instances []*models.ExpenseApproval
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval instance: %w", err)
		}
		instances = append(instances, instance)
	}

	return instances, rows.Err()
}

func scanInstance(row rowScanner) (*models.ExpenseApproval, error) {
	var instance models.ExpenseApproval
	var approverID sql.NullInt64

	err := row.Scan(
		&instance.ID,
		&instance.ExpenseID,
		&instance.StepID,
		&approverID,
		&instance.Status,
		&instance.Comments,
		&instance.StepNumber,
		&instance.ApproverRole,
		&instance.RuleID,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if approverID.Valid {
		instance.ApproverID = &approverID.Int64
	}
	return &instance, nil
}
