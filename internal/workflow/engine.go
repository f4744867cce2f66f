package workflow

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/pkg/database"
	"go.uber.org/zap"
)

// RuleStore is the workflow definition store the engine reads from
type RuleStore interface {
	// FirstForCompany returns the company's approval rule with steps
	// ordered by step number, or ErrNotFound
	FirstForCompany(companyID int64) (*models.ApprovalRule, error)

	// GetStep returns the step with the given number within a rule,
	// or ErrNotFound
	GetStep(ruleID int64, stepNumber int) (*models.ApprovalStep, error)
}

// ExpenseStore is the slice of the expense ledger the engine mutates
type ExpenseStore interface {
	GetByID(id int64) (*models.Expense, error)

	// UpdateStatus transitions an expense from one status to another.
	// Returns ErrInvalidState when the expense is not in fromStatus.
	UpdateStatus(tx *sql.Tx, id int64, fromStatus, toStatus string) error
}

// ApprovalStore tracks per-expense, per-step progress records
type ApprovalStore interface {
	// CreatePending inserts a new Pending instance. Returns
	// ErrConflict when one already exists for (expense, step).
	CreatePending(tx *sql.Tx, expenseID, stepID int64) (int64, error)

	// GetByID returns the instance joined with its step, or ErrNotFound
	GetByID(id int64) (*models.ExpenseApproval, error)

	// RecordDecision moves a Pending instance to a terminal status.
	// Returns ErrInvalidState when the instance was already decided.
	RecordDecision(tx *sql.Tx, id int64, status string, approverID int64, comments string) error

	// ActivePendingForExpense returns the one Pending instance of an
	// expense, or nil when the expense is settled
	ActivePendingForExpense(expenseID int64) (*models.ExpenseApproval, error)

	// ListPendingForRole returns the approver inbox for a role within
	// a company, newest first
	ListPendingForRole(role string, companyID int64) ([]*models.PendingApproval, error)
}

// VoucherIssuer is notified once an expense reaches its terminal
// Approved state. Issuing is best-effort and must not fail the
// approval itself.
type VoucherIssuer interface {
	IssueVoucher(expenseID int64)
}

// Engine drives an expense claim through its company's ordered
// approval chain: it instantiates the first step on submission,
// advances to the successor step on approval, and halts the chain on
// rejection or final approval.
type Engine struct {
	db        *database.DB
	rules     RuleStore
	expenses  ExpenseStore
	approvals ApprovalStore
	issuer    VoucherIssuer
	logger    *zap.Logger
}

// NewEngine creates a new workflow engine. issuer may be nil.
func NewEngine(
	db *database.DB,
	rules RuleStore,
	expenses ExpenseStore,
	approvals ApprovalStore,
	issuer VoucherIssuer,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		db:        db,
		rules:     rules,
		expenses:  expenses,
		approvals: approvals,
		issuer:    issuer,
		logger:    logger,
	}
}

// StartWorkflow creates the step-1 Pending instance for a freshly
// inserted expense. It runs inside the caller's submit transaction so
// that an expense is never committed without an active step. When the
// company has no rule, or a rule with no steps, it fails with
// ErrNoWorkflow and the caller's transaction rolls the expense back.
func (e *Engine) StartWorkflow(tx *sql.Tx, expense *models.Expense, companyID int64) error {
	rule, err := e.rules.FirstForCompany(companyID)
	if errors.Is(err, ErrNotFound) {
		return ErrNoWorkflow
	}
	if err != nil {
		return fmt.Errorf("failed to load approval rule: %w", err)
	}
	if len(rule.Steps) == 0 {
		return ErrNoWorkflow
	}

	// Lookup by step number, not slice position
	var first *models.ApprovalStep
	for i := range rule.Steps {
		if rule.Steps[i].StepNumber == 1 {
			first = &rule.Steps[i]
			break
		}
	}
	if first == nil {
		return ErrNoWorkflow
	}

	instanceID, err := e.approvals.CreatePending(tx, expense.ID, first.ID)
	if err != nil {
		return fmt.Errorf("failed to create first approval instance: %w", err)
	}

	e.logger.Info("Workflow started",
		zap.Int64("expense_id", expense.ID),
		zap.Int64("rule_id", rule.ID),
		zap.Int64("instance_id", instanceID),
		zap.String("approver_role", first.ApproverRole))

	return nil
}

// Decide records an approver's decision on a pending instance and
// advances or halts the chain. The decision, the successor instance
// and any expense finalization commit in a single transaction; a
// concurrent conflicting decision loses with ErrInvalidState.
func (e *Engine) Decide(instanceID int64, principal models.Principal, decision, comment string) error {
	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		return NewValidationError("decision", fmt.Sprintf("must be %s or %s", models.DecisionApproved, models.DecisionRejected))
	}

	instance, err := e.approvals.GetByID(instanceID)
	if err != nil {
		return err
	}

	if err := Authorize(principal, instance); err != nil {
		return err
	}
	if instance.Status != models.StatusPending {
		return ErrInvalidState
	}

	var finalized bool
	err = e.db.WithTransaction(func(tx *sql.Tx) error {
		// Compare-and-set on Pending inside the transaction is the
		// serialization point: of two racing decisions at most one
		// finds the row still Pending
		if err := e.approvals.RecordDecision(tx, instanceID, decision, principal.ID, comment); err != nil {
			return err
		}

		if decision == models.DecisionRejected {
			finalized = true
			return e.expenses.UpdateStatus(tx, instance.ExpenseID, models.StatusPending, models.StatusRejected)
		}

		next, err := e.rules.GetStep(instance.RuleID, instance.StepNumber+1)
		if errors.Is(err, ErrNotFound) {
			// Last step approved
			finalized = true
			return e.expenses.UpdateStatus(tx, instance.ExpenseID, models.StatusPending, models.StatusApproved)
		}
		if err != nil {
			return fmt.Errorf("failed to look up next step: %w", err)
		}

		_, err = e.approvals.CreatePending(tx, instance.ExpenseID, next.ID)
		return err
	})
	if err != nil {
		return err
	}

	e.logger.Info("Decision recorded",
		zap.Int64("instance_id", instanceID),
		zap.Int64("expense_id", instance.ExpenseID),
		zap.Int("step_number", instance.StepNumber),
		zap.Int64("approver_id", principal.ID),
		zap.String("decision", decision),
		zap.Bool("finalized", finalized))

	if finalized && decision == models.DecisionApproved && e.issuer != nil {
		e.issuer.IssueVoucher(instance.ExpenseID)
	}

	return nil
}

// PendingForRole returns the approver inbox for the principal: all
// Pending instances whose step requires the principal's role, within
// the principal's company.
func (e *Engine) PendingForRole(principal models.Principal) ([]*models.PendingApproval, error) {
	return e.approvals.ListPendingForRole(principal.Role, principal.CompanyID)
}

// ActiveStep returns the currently pending instance of an expense, or
// nil when the expense is settled. Listing endpoints use it to derive
// the "Pending <role> Approval" display status.
func (e *Engine) ActiveStep(expenseID int64) (*models.ExpenseApproval, error) {
	return e.approvals.ActivePendingForExpense(expenseID)
}
