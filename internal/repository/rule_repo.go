package repository

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"go.uber.org/zap"
)

// RuleRepository is the workflow definition store: named, ordered
// approval-step templates per company.
type RuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sql.DB, logger *zap.Logger) *RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a rule and its steps atomically. Steps must carry
// unique, contiguous step numbers starting at 1; anything else fails
// with a ValidationError before touching the database.
func (r *RuleRepository) Create(tx *sql.Tx, rule *models.ApprovalRule) error {
	if err := validateSteps(rule.Steps); err != nil {
		return err
	}

	q := conn(r.db, tx)

	result, err := q.Exec(
		`INSERT INTO approval_rules (company_id, name, description) VALUES (?, ?, ?)`,
		rule.CompanyID, rule.Name, rule.Description,
	)
	if err != nil {
		r.logger.Error("Failed to create approval rule", zap.Error(err))
		return fmt.Errorf("failed to create approval rule: %w", err)
	}

	ruleID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rule.ID = ruleID

	for i := range rule.Steps {
		step := &rule.Steps[i]
		step.RuleID = ruleID

		result, err := q.Exec(
			`INSERT INTO approval_steps (rule_id, step_number, approver_role) VALUES (?, ?, ?)`,
			ruleID, step.StepNumber, step.ApproverRole,
		)
		if err != nil {
			r.logger.Error("Failed to create approval step",
				zap.Int64("rule_id", ruleID),
				zap.Int("step_number", step.StepNumber),
				zap.Error(err))
			return fmt.Errorf("failed to create approval step %d: %w", step.StepNumber, err)
		}

		stepID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		step.ID = stepID
	}

	return nil
}

// validateSteps enforces the contiguous-from-1 numbering invariant at
// creation time; it is not re-validated later.
func validateSteps(steps []models.ApprovalStep) error {
	if len(steps) == 0 {
		return workflow.NewValidationError("steps", "at least one step is required")
	}

	numbers := make([]int, 0, len(steps))
	seen := make(map[int]bool, len(steps))
	for _, step := range steps {
		if step.ApproverRole == "" {
			return workflow.NewValidationError("steps", fmt.Sprintf("step %d has no approver role", step.StepNumber))
		}
		if seen[step.StepNumber] {
			return workflow.NewValidationError("steps", fmt.Sprintf("duplicate step number %d", step.StepNumber))
		}
		seen[step.StepNumber] = true
		numbers = append(numbers, step.StepNumber)
	}

	sort.Ints(numbers)
	for i, n := range numbers {
		if n != i+1 {
			return workflow.NewValidationError("steps", "step numbers must be contiguous starting at 1")
		}
	}

	return nil
}

// FirstForCompany returns the company's first approval rule with its
// steps ordered by step number, or ErrNotFound when the company has
// none.
func (r *RuleRepository) FirstForCompany(companyID int64) (*models.ApprovalRule, error) {
	var rule models.ApprovalRule
	err := r.db.QueryRow(
		`SELECT id, company_id, name, description, created_at
		 FROM approval_rules
		 WHERE company_id = ?
		 ORDER BY id
		 LIMIT 1`,
		companyID,
	).Scan(&rule.ID, &rule.CompanyID, &rule.Name, &rule.Description, &rule.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get approval rule", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval rule: %w", err)
	}

	rows, err := r.db.Query(
		`SELECT id, rule_id, step_number, approver_role
		 FROM approval_steps
		 WHERE rule_id = ?
		 ORDER BY step_number`,
		rule.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step models.ApprovalStep
		if err := rows.Scan(&step.ID, &step.RuleID, &step.StepNumber, &step.ApproverRole); err != nil {
			return nil, fmt.Errorf("failed to scan approval step: %w", err)
		}
		rule.Steps = append(rule.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &rule, nil
}

// GetStep returns the step with the given number within a rule, or
// ErrNotFound. The engine uses this to advance to step_number + 1.
func (r *RuleRepository) GetStep(ruleID int64, stepNumber int) (*models.ApprovalStep, error) {
	var step models.ApprovalStep
	err := r.db.QueryRow(
		`SELECT id, rule_id, step_number, approver_role
		 FROM approval_steps
		 WHERE rule_id = ? AND step_number = ?`,
		ruleID, stepNumber,
	).Scan(&step.ID, &step.RuleID, &step.StepNumber, &step.ApproverRole)

	if err == sql.ErrNoRows {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get approval step",
			zap.Int64("rule_id", ruleID),
			zap.Int("step_number", stepNumber),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval step: %w", err)
	}

	return &step, nil
}
