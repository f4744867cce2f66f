package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/repository"
	"github.com/expenseflow/expenseflow/internal/testutil"
	"github.com/expenseflow/expenseflow/pkg/database"
)

type repos struct {
	db        *database.DB
	companies *repository.CompanyRepository
	users     *repository.UserRepository
	rules     *repository.RuleRepository
	expenses  *repository.ExpenseRepository
	approvals *repository.ApprovalRepository
}

func newRepos(t *testing.T) *repos {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger := zap.NewNop()
	return &repos{
		db:        db,
		companies: repository.NewCompanyRepository(db.DB, logger),
		users:     repository.NewUserRepository(db.DB, logger),
		rules:     repository.NewRuleRepository(db.DB, logger),
		expenses:  repository.NewExpenseRepository(db.DB, logger),
		approvals: repository.NewApprovalRepository(db.DB, logger),
	}
}

func (r *repos) seedCompany(t *testing.T, name string) *models.Company {
	t.Helper()
	company := &models.Company{Name: name, DefaultCurrency: "USD"}
	require.NoError(t, r.companies.Create(nil, company))
	return company
}

func (r *repos) seedUser(t *testing.T, companyID int64, email, role string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		CompanyID:    companyID,
	}
	require.NoError(t, r.users.Create(nil, user))
	return user
}

func (r *repos) seedExpense(t *testing.T, employeeID int64, amount float64) *models.Expense {
	t.Helper()
	expense := &models.Expense{
		EmployeeID:  employeeID,
		Category:    "Meals",
		Amount:      amount,
		Currency:    "USD",
		ExpenseDate: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, r.expenses.Create(nil, expense))
	return expense
}

func (r *repos) seedRule(t *testing.T, companyID int64, roles ...string) *models.ApprovalRule {
	t.Helper()
	rule := &models.ApprovalRule{CompanyID: companyID, Name: "Default"}
	for i, role := range roles {
		rule.Steps = append(rule.Steps, models.ApprovalStep{StepNumber: i + 1, ApproverRole: role})
	}
	require.NoError(t, r.rules.Create(nil, rule))
	return rule
}
