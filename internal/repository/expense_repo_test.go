package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/workflow"
)

func TestExpenseCreateAndGet(t *testing.T) {
	r := newRepos(t)
	company := r.seedCompany(t, "Acme")
	employee := r.seedUser(t, company.ID, "e@acme.test", models.RoleEmployee)

	expense := r.seedExpense(t, employee.ID, 42.50)
	require.NotZero(t, expense.ID)
	assert.Equal(t, models.StatusPending, expense.Status)

	got, err := r.expenses.GetByID(expense.ID)
	require.NoError(t, err)
	assert.Equal(t, employee.ID, got.EmployeeID)
	assert.Equal(t, 42.50, got.Amount)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, models.StatusPending, got.Status)

	_, err = r.expenses.GetByID(9999)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestExpenseUpdateStatusGuardsCurrentState(t *testing.T) {
	r := newRepos(t)
	company := r.seedCompany(t, "Acme")
	employee := r.seedUser(t, company.ID, "e@acme.test", models.RoleEmployee)
	expense := r.seedExpense(t, employee.ID, 10)

	require.NoError(t, r.expenses.UpdateStatus(nil, expense.ID, models.StatusPending, models.StatusApproved))

	got, err := r.expenses.GetByID(expense.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	// Terminal states do not transition again
	err = r.expenses.UpdateStatus(nil, expense.ID, models.StatusPending, models.StatusRejected)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	got, err = r.expenses.GetByID(expense.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestExpenseListings(t *testing.T) {
	r := newRepos(t)
	company := r.seedCompany(t, "Acme")
	manager := r.seedUser(t, company.ID, "m@acme.test", models.RoleManager)

	report := &models.User{
		Email:        "e@acme.test",
		PasswordHash: "x",
		Role:         models.RoleEmployee,
		CompanyID:    company.ID,
		ManagerID:    &manager.ID,
	}
	require.NoError(t, r.users.Create(nil, report))

	other := r.seedUser(t, company.ID, "o@acme.test", models.RoleEmployee)

	first := r.seedExpense(t, report.ID, 10)
	second := r.seedExpense(t, report.ID, 20)
	outside := r.seedExpense(t, other.ID, 30)

	mine, err := r.expenses.ListByEmployee(report.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	// Newest first, id breaks the created_at tie
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	team, err := r.expenses.ListByManager(manager.ID)
	require.NoError(t, err)
	require.Len(t, team, 2)
	for _, expense := range team {
		assert.Equal(t, report.ID, expense.EmployeeID)
	}

	all, err := r.expenses.ListByCompany(company.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, outside.ID, all[0].ID)
}
