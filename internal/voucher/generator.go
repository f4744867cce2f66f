// Package voucher produces Excel reimbursement vouchers for fully
// approved expenses. Generation runs after the approval transaction
// commits and is best-effort: a failure here is logged, never
// propagated into the workflow.
package voucher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Config holds voucher generation configuration
type Config struct {
	OutputDir string
}

// Generator builds voucher workbooks and records them
type Generator struct {
	cfg       Config
	expenses  *repository.ExpenseRepository
	users     *repository.UserRepository
	companies *repository.CompanyRepository
	approvals *repository.ApprovalRepository
	vouchers  *repository.VoucherRepository
	logger    *zap.Logger
}

// NewGenerator creates a new voucher generator
func NewGenerator(
	cfg Config,
	expenses *repository.ExpenseRepository,
	users *repository.UserRepository,
	companies *repository.CompanyRepository,
	approvals *repository.ApprovalRepository,
	vouchers *repository.VoucherRepository,
	logger *zap.Logger,
) (*Generator, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create voucher output dir: %w", err)
	}
	return &Generator{
		cfg:       cfg,
		expenses:  expenses,
		users:     users,
		companies: companies,
		approvals: approvals,
		vouchers:  vouchers,
		logger:    logger,
	}, nil
}

// IssueVoucher satisfies workflow.VoucherIssuer
func (g *Generator) IssueVoucher(expenseID int64) {
	voucher, err := g.Generate(expenseID)
	if err != nil {
		g.logger.Error("Voucher generation failed",
			zap.Int64("expense_id", expenseID),
			zap.Error(err))
		return
	}
	g.logger.Info("Voucher generated",
		zap.Int64("expense_id", expenseID),
		zap.String("voucher_number", voucher.VoucherNumber),
		zap.String("file", voucher.FilePath))
}

// Generate builds the workbook for an approved expense and records it
func (g *Generator) Generate(expenseID int64) (*models.Voucher, error) {
	expense, err := g.expenses.GetByID(expenseID)
	if err != nil {
		return nil, err
	}
	if expense.Status != models.StatusApproved {
		return nil, fmt.Errorf("expense %d is %s, not %s", expenseID, expense.Status, models.StatusApproved)
	}

	employee, err := g.users.GetByID(expense.EmployeeID)
	if err != nil {
		return nil, err
	}
	company, err := g.companies.GetByID(employee.CompanyID)
	if err != nil {
		return nil, err
	}
	history, err := g.approvals.ListByExpense(expenseID)
	if err != nil {
		return nil, err
	}

	number := newVoucherNumber()
	path := filepath.Join(g.cfg.OutputDir, number+".xlsx")

	if err := g.writeWorkbook(path, number, company, employee, expense, history); err != nil {
		return nil, err
	}

	voucher := &models.Voucher{
		ExpenseID:     expenseID,
		VoucherNumber: number,
		FilePath:      path,
	}
	if err := g.vouchers.Create(nil, voucher); err != nil {
		// Don't leave the workbook behind without a record
		_ = os.Remove(path)
		return nil, err
	}
	return voucher, nil
}

func (g *Generator) writeWorkbook(
	path, number string,
	company *models.Company,
	employee *models.User,
	expense *models.Expense,
	history []*models.ExpenseApproval,
) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	set := func(cell string, value interface{}) {
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			g.logger.Warn("Failed to set cell", zap.String("cell", cell), zap.Error(err))
		}
	}

	set("A1", "Expense Reimbursement Voucher")
	set("A2", "Voucher Number")
	set("B2", number)
	set("A3", "Company")
	set("B3", company.Name)
	set("A4", "Employee")
	set("B4", employee.Email)
	set("A5", "Category")
	set("B5", expense.Category)
	set("A6", "Amount")
	set("B6", fmt.Sprintf("%.2f %s", expense.Amount, expense.Currency))
	set("A7", "Expense Date")
	set("B7", expense.ExpenseDate.Format("2006-01-02"))
	set("A8", "Description")
	set("B8", expense.Description)

	// Approval trail
	set("A10", "Step")
	set("B10", "Role")
	set("C10", "Status")
	set("D10", "Comments")
	set("E10", "Decided At")
	for i, approval := range history {
		row := 11 + i
		set(fmt.Sprintf("A%d", row), approval.StepNumber)
		set(fmt.Sprintf("B%d", row), approval.ApproverRole)
		set(fmt.Sprintf("C%d", row), approval.Status)
		set(fmt.Sprintf("D%d", row), approval.Comments)
		set(fmt.Sprintf("E%d", row), approval.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save voucher workbook: %w", err)
	}
	return nil
}

// newVoucherNumber builds a date-prefixed voucher number, e.g.
// EXP-20260829-1A2B3C4D
func newVoucherNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("EXP-%s-%s", time.Now().Format("20060102"), suffix)
}
