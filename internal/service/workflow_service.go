package service

import (
	"database/sql"
	"strings"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/repository"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"github.com/expenseflow/expenseflow/pkg/database"
	"go.uber.org/zap"
)

// StepDefinition is one step of a workflow definition request
type StepDefinition struct {
	StepNumber   int    `json:"step_number"`
	ApproverRole string `json:"approver_role"`
}

// CreateDefinitionRequest carries a new workflow definition
type CreateDefinitionRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Steps       []StepDefinition `json:"steps"`
}

// WorkflowService manages approval workflow definitions
type WorkflowService struct {
	db     *database.DB
	rules  *repository.RuleRepository
	logger *zap.Logger
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(db *database.DB, rules *repository.RuleRepository, logger *zap.Logger) *WorkflowService {
	return &WorkflowService{
		db:     db,
		rules:  rules,
		logger: logger,
	}
}

// CreateDefinition persists a named, ordered approval-step template
// for the principal's company. Admin only. Edits are not supported:
// rules are immutable once created, so in-flight expenses are never
// rewired.
func (s *WorkflowService) CreateDefinition(principal models.Principal, req CreateDefinitionRequest) (*models.ApprovalRule, error) {
	if principal.Role != models.RoleAdmin {
		return nil, &workflow.UnauthorizedError{RequiredRole: models.RoleAdmin, ActualRole: principal.Role}
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, workflow.NewValidationError("name", "is required")
	}

	rule := &models.ApprovalRule{
		CompanyID:   principal.CompanyID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Steps:       make([]models.ApprovalStep, 0, len(req.Steps)),
	}
	for _, step := range req.Steps {
		rule.Steps = append(rule.Steps, models.ApprovalStep{
			StepNumber:   step.StepNumber,
			ApproverRole: strings.TrimSpace(step.ApproverRole),
		})
	}

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		return s.rules.Create(tx, rule)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Workflow definition created",
		zap.Int64("rule_id", rule.ID),
		zap.Int64("company_id", principal.CompanyID),
		zap.String("name", rule.Name),
		zap.Int("steps", len(rule.Steps)))

	return rule, nil
}
