package voucher

import (
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/repository"
	"github.com/expenseflow/expenseflow/internal/testutil"
	"github.com/expenseflow/expenseflow/internal/workflow"
)

type generatorFixture struct {
	generator *Generator
	vouchers  *repository.VoucherRepository
	expenses  *repository.ExpenseRepository
	approvals *repository.ApprovalRepository

	expense *models.Expense
	stepID  int64
	manager *models.User
}

func newGeneratorFixture(t *testing.T) *generatorFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	logger := zap.NewNop()

	companies := repository.NewCompanyRepository(db.DB, logger)
	users := repository.NewUserRepository(db.DB, logger)
	rules := repository.NewRuleRepository(db.DB, logger)
	expenses := repository.NewExpenseRepository(db.DB, logger)
	approvals := repository.NewApprovalRepository(db.DB, logger)
	vouchers := repository.NewVoucherRepository(db.DB, logger)

	generator, err := NewGenerator(
		Config{OutputDir: t.TempDir()},
		expenses, users, companies, approvals, vouchers, logger,
	)
	require.NoError(t, err)

	company := &models.Company{Name: "Acme", DefaultCurrency: "USD"}
	require.NoError(t, companies.Create(nil, company))

	employee := &models.User{Email: "e@acme.test", PasswordHash: "x", Role: models.RoleEmployee, CompanyID: company.ID}
	require.NoError(t, users.Create(nil, employee))
	manager := &models.User{Email: "m@acme.test", PasswordHash: "x", Role: models.RoleManager, CompanyID: company.ID}
	require.NoError(t, users.Create(nil, manager))

	rule := &models.ApprovalRule{
		CompanyID: company.ID,
		Name:      "Default",
		Steps:     []models.ApprovalStep{{StepNumber: 1, ApproverRole: models.RoleManager}},
	}
	require.NoError(t, rules.Create(nil, rule))

	expense := &models.Expense{
		EmployeeID:  employee.ID,
		Category:    "Travel",
		Amount:      250,
		Currency:    "USD",
		Description: "Conference flight",
		ExpenseDate: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, expenses.Create(nil, expense))

	return &generatorFixture{
		generator: generator,
		vouchers:  vouchers,
		expenses:  expenses,
		approvals: approvals,
		expense:   expense,
		stepID:    rule.Steps[0].ID,
		manager:   manager,
	}
}

// approve walks the expense through its single approval step
func (f *generatorFixture) approve(t *testing.T) {
	t.Helper()
	id, err := f.approvals.CreatePending(nil, f.expense.ID, f.stepID)
	require.NoError(t, err)
	require.NoError(t, f.approvals.RecordDecision(nil, id, models.DecisionApproved, f.manager.ID, "approved"))
	require.NoError(t, f.expenses.UpdateStatus(nil, f.expense.ID, models.StatusPending, models.StatusApproved))
}

func TestGenerateWritesWorkbookAndRecord(t *testing.T) {
	f := newGeneratorFixture(t)
	f.approve(t)

	voucher, err := f.generator.Generate(f.expense.ID)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^EXP-\d{8}-[0-9A-F]{8}$`), voucher.VoucherNumber)

	info, err := os.Stat(voucher.FilePath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	got, err := f.vouchers.GetByExpense(f.expense.ID)
	require.NoError(t, err)
	assert.Equal(t, voucher.VoucherNumber, got.VoucherNumber)
	assert.Equal(t, voucher.FilePath, got.FilePath)
}

func TestGenerateRequiresApprovedExpense(t *testing.T) {
	f := newGeneratorFixture(t)

	_, err := f.generator.Generate(f.expense.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), models.StatusPending)
}

func TestGenerateOncePerExpense(t *testing.T) {
	f := newGeneratorFixture(t)
	f.approve(t)

	first, err := f.generator.Generate(f.expense.ID)
	require.NoError(t, err)

	// The unique voucher-per-expense constraint rejects a second run
	// and the orphan workbook is removed
	second, err := f.generator.Generate(f.expense.ID)
	require.ErrorIs(t, err, workflow.ErrConflict)
	assert.Nil(t, second)

	_, err = os.Stat(first.FilePath)
	assert.NoError(t, err)
}

func TestGenerateUnknownExpense(t *testing.T) {
	f := newGeneratorFixture(t)

	_, err := f.generator.Generate(9999)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}
