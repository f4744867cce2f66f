package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/repository"
	"github.com/expenseflow/expenseflow/internal/service"
	"github.com/expenseflow/expenseflow/internal/testutil"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"github.com/expenseflow/expenseflow/pkg/database"
)

type serviceFixture struct {
	db        *database.DB
	users     *repository.UserRepository
	rules     *repository.RuleRepository
	approvals *repository.ApprovalRepository
	engine    *workflow.Engine
	expenses  *service.ExpenseService
	workflows *service.WorkflowService

	company  *models.Company
	admin    *models.User
	employee *models.User
	manager  *models.User
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	logger := zap.NewNop()

	companies := repository.NewCompanyRepository(db.DB, logger)
	users := repository.NewUserRepository(db.DB, logger)
	rules := repository.NewRuleRepository(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	approvals := repository.NewApprovalRepository(db.DB, logger)
	engine := workflow.NewEngine(db, rules, expenseRepo, approvals, nil, logger)

	f := &serviceFixture{
		db:        db,
		users:     users,
		rules:     rules,
		approvals: approvals,
		engine:    engine,
		expenses:  service.NewExpenseService(db, expenseRepo, companies, engine, logger),
		workflows: service.NewWorkflowService(db, rules, logger),
	}

	f.company = &models.Company{Name: "Acme", DefaultCurrency: "EUR"}
	require.NoError(t, companies.Create(nil, f.company))
	f.admin = f.seedUser(t, "admin@acme.test", models.RoleAdmin, nil)
	f.manager = f.seedUser(t, "manager@acme.test", models.RoleManager, nil)
	f.employee = f.seedUser(t, "employee@acme.test", models.RoleEmployee, &f.manager.ID)

	return f
}

func (f *serviceFixture) seedUser(t *testing.T, email, role string, managerID *int64) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		CompanyID:    f.company.ID,
		ManagerID:    managerID,
	}
	require.NoError(t, f.users.Create(nil, user))
	return user
}

func (f *serviceFixture) principal(user *models.User) models.Principal {
	return models.Principal{ID: user.ID, Role: user.Role, CompanyID: user.CompanyID}
}

func (f *serviceFixture) seedRule(t *testing.T, roles ...string) {
	t.Helper()
	rule := &models.ApprovalRule{CompanyID: f.company.ID, Name: "Default"}
	for i, role := range roles {
		rule.Steps = append(rule.Steps, models.ApprovalStep{StepNumber: i + 1, ApproverRole: role})
	}
	require.NoError(t, f.rules.Create(nil, rule))
}

func validRequest() service.SubmitExpenseRequest {
	return service.SubmitExpenseRequest{
		Category:    "Travel",
		Amount:      99.95,
		Currency:    "usd",
		Description: "Taxi to airport",
		ExpenseDate: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestSubmitStartsWorkflow(t *testing.T) {
	f := newServiceFixture(t)
	f.seedRule(t, models.RoleManager)

	expense, err := f.expenses.Submit(f.principal(f.employee), validRequest())
	require.NoError(t, err)
	require.NotZero(t, expense.ID)
	assert.Equal(t, models.StatusPending, expense.Status)
	assert.Equal(t, "USD", expense.Currency)

	active, err := f.engine.ActiveStep(expense.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, models.RoleManager, active.ApproverRole)
}

func TestSubmitValidation(t *testing.T) {
	f := newServiceFixture(t)
	f.seedRule(t, models.RoleManager)

	tests := []struct {
		name   string
		mutate func(*service.SubmitExpenseRequest)
		field  string
	}{
		{"blank category", func(r *service.SubmitExpenseRequest) { r.Category = "  " }, "category"},
		{"negative amount", func(r *service.SubmitExpenseRequest) { r.Amount = -5 }, "amount"},
		{"sub-cent amount", func(r *service.SubmitExpenseRequest) { r.Amount = 10.999 }, "amount"},
		{"zero date", func(r *service.SubmitExpenseRequest) { r.ExpenseDate = time.Time{} }, "expense_date"},
		{"short currency", func(r *service.SubmitExpenseRequest) { r.Currency = "US" }, "currency"},
		{"numeric currency", func(r *service.SubmitExpenseRequest) { r.Currency = "U5D" }, "currency"},
		{"non-ascii currency", func(r *service.SubmitExpenseRequest) { r.Currency = "éA" }, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := f.expenses.Submit(f.principal(f.employee), req)
			var validationErr *workflow.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestSubmitAcceptsOrdinaryCentAmounts(t *testing.T) {
	f := newServiceFixture(t)
	f.seedRule(t, models.RoleManager)

	// Amounts whose cent value has no exact float64 representation
	// must still pass the two-decimal check
	for _, amount := range []float64{19.99, 0.07, 0.29, 29.99, 99.95, 1234.56} {
		req := validRequest()
		req.Amount = amount

		expense, err := f.expenses.Submit(f.principal(f.employee), req)
		require.NoError(t, err, "amount %v", amount)
		assert.Equal(t, amount, expense.Amount)
	}
}

func TestSubmitZeroAmountAllowed(t *testing.T) {
	f := newServiceFixture(t)
	f.seedRule(t, models.RoleManager)

	req := validRequest()
	req.Amount = 0

	_, err := f.expenses.Submit(f.principal(f.employee), req)
	require.NoError(t, err)
}

func TestSubmitDefaultsToCompanyCurrency(t *testing.T) {
	f := newServiceFixture(t)
	f.seedRule(t, models.RoleManager)

	req := validRequest()
	req.Currency = ""

	expense, err := f.expenses.Submit(f.principal(f.employee), req)
	require.NoError(t, err)
	assert.Equal(t, "EUR", expense.Currency)
}

func TestSubmitWithoutWorkflowLeavesNoOrphan(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.expenses.Submit(f.principal(f.employee), validRequest())
	require.ErrorIs(t, err, workflow.ErrNoWorkflow)

	views, err := f.expenses.History(f.principal(f.employee))
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestHistoryDerivesDisplayStatus(t *testing.T) {
	f := newServiceFixture(t)
	f.seedRule(t, models.RoleManager, models.RoleFinance)

	expense, err := f.expenses.Submit(f.principal(f.employee), validRequest())
	require.NoError(t, err)

	views, err := f.expenses.History(f.principal(f.employee))
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Pending Manager Approval", views[0].DisplayStatus)

	active, err := f.engine.ActiveStep(expense.ID)
	require.NoError(t, err)
	require.NoError(t, f.engine.Decide(active.ID, f.principal(f.manager), models.DecisionApproved, ""))

	views, err = f.expenses.History(f.principal(f.employee))
	require.NoError(t, err)
	assert.Equal(t, "Pending Finance Approval", views[0].DisplayStatus)
}

func TestListCompanyAdminOnly(t *testing.T) {
	f := newServiceFixture(t)
	f.seedRule(t, models.RoleManager)

	_, err := f.expenses.Submit(f.principal(f.employee), validRequest())
	require.NoError(t, err)

	views, err := f.expenses.ListCompany(f.principal(f.admin))
	require.NoError(t, err)
	assert.Len(t, views, 1)

	_, err = f.expenses.ListCompany(f.principal(f.employee))
	var unauthorized *workflow.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, models.RoleAdmin, unauthorized.RequiredRole)
}

func TestListTeamScopedToDirectReports(t *testing.T) {
	f := newServiceFixture(t)
	f.seedRule(t, models.RoleManager)

	_, err := f.expenses.Submit(f.principal(f.employee), validRequest())
	require.NoError(t, err)

	views, err := f.expenses.ListTeam(f.principal(f.manager))
	require.NoError(t, err)
	assert.Len(t, views, 1)

	// The admin has no reports
	views, err = f.expenses.ListTeam(f.principal(f.admin))
	require.NoError(t, err)
	assert.Empty(t, views)
}
