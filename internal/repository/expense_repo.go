package repository

import (
	"database/sql"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"go.uber.org/zap"
)

const expenseColumns = `id, employee_id, category, amount, currency, description, expense_date, status, created_at`

// ExpenseRepository is the expense ledger
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new expense claim
func (r *ExpenseRepository) Create(tx *sql.Tx, expense *models.Expense) error {
	result, err := conn(r.db, tx).Exec(
		`INSERT INTO expenses (employee_id, category, amount, currency, description, expense_date, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.EmployeeID,
		expense.Category,
		expense.Amount,
		expense.Currency,
		expense.Description,
		expense.ExpenseDate,
		models.StatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	expense.Status = models.StatusPending
	return nil
}

// GetByID retrieves an expense by ID, or ErrNotFound
func (r *ExpenseRepository) GetByID(id int64) (*models.Expense, error) {
	expense, err := r.scanExpense(r.db.QueryRow(
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// UpdateStatus transitions an expense from one overall status to
// another. The fromStatus guard keeps finalization idempotent-safe: a
// second transition out of Pending affects zero rows and fails with
// ErrInvalidState.
func (r *ExpenseRepository) UpdateStatus(tx *sql.Tx, id int64, fromStatus, toStatus string) error {
	result, err := conn(r.db, tx).Exec(
		`UPDATE expenses SET status = ? WHERE id = ? AND status = ?`,
		toStatus, id, fromStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update expense status",
			zap.Int64("id", id),
			zap.String("to", toStatus),
			zap.Error(err))
		return fmt.Errorf("failed to update expense status: %w", err)
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

// ListByEmployee returns an employee's expenses, newest first
func (r *ExpenseRepository) ListByEmployee(employeeID int64) ([]*models.Expense, error) {
	return r.list(
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE employee_id = ?
		 ORDER BY created_at DESC, id DESC`,
		employeeID,
	)
}

// ListByCompany returns every expense submitted within a company,
// newest first
func (r *ExpenseRepository) ListByCompany(companyID int64) ([]*models.Expense, error) {
	return r.list(
		`SELECT e.id, e.employee_id, e.category, e.amount, e.currency, e.description, e.expense_date, e.status, e.created_at
		 FROM expenses e
		 JOIN users u ON u.id = e.employee_id
		 WHERE u.company_id = ?
		 ORDER BY e.created_at DESC, e.id DESC`,
		companyID,
	)
}

// ListByManager returns expenses submitted by a manager's direct
// reports, newest first
func (r *ExpenseRepository) ListByManager(managerID int64) ([]*models.Expense, error) {
	return r.list(
		`SELECT e.id, e.employee_id, e.category, e.amount, e.currency, e.description, e.expense_date, e.status, e.created_at
		 FROM expenses e
		 JOIN users u ON u.id = e.employee_id
		 WHERE u.manager_id = ?
		 ORDER BY e.created_at DESC, e.id DESC`,
		managerID,
	)
}

func (r *ExpenseRepository) list(query string, args ...interface{}) ([]*models.Expense, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		var expense models.Expense
		if err := rows.Scan(
			&expense.ID,
			&expense.EmployeeID,
			&expense.Category,
			&expense.Amount,
			&expense.Currency,
			&expense.Description,
			&expense.ExpenseDate,
			&expense.Status,
			&expense.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, &expense)
	}

	return expenses, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ExpenseRepository) scanExpense(row rowScanner) (*models.Expense, error) {
	var expense models.Expense
	err := row.Scan(
		&expense.ID,
		&expense.EmployeeID,
		&expense.Category,
		&expense.Amount,
		&expense.Currency,
		&expense.Description,
		&expense.ExpenseDate,
		&expense.Status,
		&expense.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &expense, nil
}
