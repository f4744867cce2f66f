package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/workflow"
)

func TestRuleCreateValidation(t *testing.T) {
	r := newRepos(t)
	company := r.seedCompany(t, "Acme")

	tests := []struct {
		name  string
		steps []models.ApprovalStep
	}{
		{"no steps", nil},
		{"missing role", []models.ApprovalStep{
			{StepNumber: 1, ApproverRole: ""},
		}},
		{"duplicate step numbers", []models.ApprovalStep{
			{StepNumber: 1, ApproverRole: models.RoleManager},
			{StepNumber: 1, ApproverRole: models.RoleFinance},
		}},
		{"numbering starts above one", []models.ApprovalStep{
			{StepNumber: 2, ApproverRole: models.RoleManager},
			{StepNumber: 3, ApproverRole: models.RoleFinance},
		}},
		{"gap in numbering", []models.ApprovalStep{
			{StepNumber: 1, ApproverRole: models.RoleManager},
			{StepNumber: 3, ApproverRole: models.RoleFinance},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &models.ApprovalRule{CompanyID: company.ID, Name: "Bad", Steps: tt.steps}
			err := r.rules.Create(nil, rule)
			var validationErr *workflow.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, "steps", validationErr.Field)
		})
	}

	// Nothing was persisted by the failed attempts
	_, err := r.rules.FirstForCompany(company.ID)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestRuleCreateAndFetch(t *testing.T) {
	r := newRepos(t)
	company := r.seedCompany(t, "Acme")

	// Steps provided out of order still come back ordered by number
	rule := &models.ApprovalRule{
		CompanyID:   company.ID,
		Name:        "Standard",
		Description: "Manager then finance",
		Steps: []models.ApprovalStep{
			{StepNumber: 2, ApproverRole: models.RoleFinance},
			{StepNumber: 1, ApproverRole: models.RoleManager},
		},
	}
	require.NoError(t, r.rules.Create(nil, rule))
	require.NotZero(t, rule.ID)
	for _, step := range rule.Steps {
		assert.NotZero(t, step.ID)
		assert.Equal(t, rule.ID, step.RuleID)
	}

	got, err := r.rules.FirstForCompany(company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standard", got.Name)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, 1, got.Steps[0].StepNumber)
	assert.Equal(t, models.RoleManager, got.Steps[0].ApproverRole)
	assert.Equal(t, 2, got.Steps[1].StepNumber)
	assert.Equal(t, models.RoleFinance, got.Steps[1].ApproverRole)
}

func TestRuleFirstForCompanyPicksOldest(t *testing.T) {
	r := newRepos(t)
	company := r.seedCompany(t, "Acme")

	first := r.seedRule(t, company.ID, models.RoleManager)
	r.seedRule(t, company.ID, models.RoleFinance)

	got, err := r.rules.FirstForCompany(company.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestRuleGetStep(t *testing.T) {
	r := newRepos(t)
	company := r.seedCompany(t, "Acme")
	rule := r.seedRule(t, company.ID, models.RoleManager, models.RoleFinance)

	step, err := r.rules.GetStep(rule.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RoleFinance, step.ApproverRole)

	// One past the last step means the chain is exhausted
	_, err = r.rules.GetStep(rule.ID, 3)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}
