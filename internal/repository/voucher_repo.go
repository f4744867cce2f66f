package repository

import (
	"database/sql"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"go.uber.org/zap"
)

// VoucherRepository records generated reimbursement vouchers
type VoucherRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sql.DB, logger *zap.Logger) *VoucherRepository {
	return &VoucherRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a voucher record. An expense gets at most one
// voucher; a duplicate fails with ErrConflict.
func (r *VoucherRepository) Create(tx *sql.Tx, voucher *models.Voucher) error {
	result, err := conn(r.db, tx).Exec(
		`INSERT INTO vouchers (expense_id, voucher_number, file_path) VALUES (?, ?, ?)`,
		voucher.ExpenseID, voucher.VoucherNumber, voucher.FilePath,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return workflow.ErrConflict
		}
		r.logger.Error("Failed to create voucher", zap.Int64("expense_id", voucher.ExpenseID), zap.Error(err))
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	voucher.ID = id
	return nil
}

// GetByExpense retrieves the voucher of an expense, or ErrNotFound
func (r *VoucherRepository) GetByExpense(expenseID int64) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.QueryRow(
		`SELECT id, expense_id, voucher_number, file_path, created_at FROM vouchers WHERE expense_id = ?`,
		expenseID,
	).Scan(&voucher.ID, &voucher.ExpenseID, &voucher.VoucherNumber, &voucher.FilePath, &voucher.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get voucher", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return &voucher, nil
}
