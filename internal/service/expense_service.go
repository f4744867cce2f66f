package service

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/repository"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"github.com/expenseflow/expenseflow/pkg/database"
	"go.uber.org/zap"
)

// SubmitExpenseRequest carries a new expense claim
type SubmitExpenseRequest struct {
	Category    string
	Amount      float64
	Currency    string // optional, defaults to the company currency
	Description string
	ExpenseDate time.Time
}

// ExpenseView is the employee-facing projection of an expense,
// including the derived display status.
type ExpenseView struct {
	ExpenseID     int64     `json:"expense_id"`
	Category      string    `json:"category"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description"`
	ExpenseDate   time.Time `json:"expense_date"`
	DisplayStatus string    `json:"display_status"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// ExpenseService handles expense submission and listing
type ExpenseService struct {
	db        *database.DB
	expenses  *repository.ExpenseRepository
	companies *repository.CompanyRepository
	engine    *workflow.Engine
	logger    *zap.Logger
}

// NewExpenseService creates a new expense service
func NewExpenseService(
	db *database.DB,
	expenses *repository.ExpenseRepository,
	companies *repository.CompanyRepository,
	engine *workflow.Engine,
	logger *zap.Logger,
) *ExpenseService {
	return &ExpenseService{
		db:        db,
		expenses:  expenses,
		companies: companies,
		engine:    engine,
		logger:    logger,
	}
}

// Submit validates and persists a new expense claim and starts its
// approval workflow in the same transaction. When the company has no
// workflow configured the whole submission rolls back; no orphan
// expense is left behind.
func (s *ExpenseService) Submit(principal models.Principal, req SubmitExpenseRequest) (*models.Expense, error) {
	if strings.TrimSpace(req.Category) == "" {
		return nil, workflow.NewValidationError("category", "is required")
	}
	if req.Amount < 0 {
		return nil, workflow.NewValidationError("amount", "must not be negative")
	}
	// Float amounts like 19.99 don't scale to exact cents, so allow a
	// tolerance instead of comparing exactly
	if math.Abs(req.Amount*100-math.Round(req.Amount*100)) > 1e-9 {
		return nil, workflow.NewValidationError("amount", "must have at most 2 decimal places")
	}
	if req.ExpenseDate.IsZero() {
		return nil, workflow.NewValidationError("expense_date", "is required")
	}

	currency, err := s.resolveCurrency(principal.CompanyID, req.Currency)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		EmployeeID:  principal.ID,
		Category:    strings.TrimSpace(req.Category),
		Amount:      req.Amount,
		Currency:    currency,
		Description: req.Description,
		ExpenseDate: req.ExpenseDate,
	}

	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.expenses.Create(tx, expense); err != nil {
			return err
		}
		return s.engine.StartWorkflow(tx, expense, principal.CompanyID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Expense submitted",
		zap.Int64("expense_id", expense.ID),
		zap.Int64("employee_id", principal.ID),
		zap.Float64("amount", expense.Amount),
		zap.String("currency", expense.Currency))

	return expense, nil
}

// resolveCurrency defaults an omitted currency to the company default
// and validates the 3-letter code shape. Codes are accepted as handed
// in; the core never re-validates them against an external source.
func (s *ExpenseService) resolveCurrency(companyID int64, currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		company, err := s.companies.GetByID(companyID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve company currency: %w", err)
		}
		return company.DefaultCurrency, nil
	}

	// ISO 4217 codes are three ASCII letters
	if len(currency) != 3 {
		return "", workflow.NewValidationError("currency", "must be a 3-letter code")
	}
	for _, c := range currency {
		if c < 'A' || c > 'Z' {
			return "", workflow.NewValidationError("currency", "must be a 3-letter code")
		}
	}
	return currency, nil
}

// History returns the principal's own expenses, newest first, with
// display statuses derived from the active pending step.
func (s *ExpenseService) History(principal models.Principal) ([]*ExpenseView, error) {
	expenses, err := s.expenses.ListByEmployee(principal.ID)
	if err != nil {
		return nil, err
	}
	return s.toViews(expenses)
}

// ListCompany returns every expense in the principal's company. Admin
// only.
func (s *ExpenseService) ListCompany(principal models.Principal) ([]*ExpenseView, error) {
	if principal.Role != models.RoleAdmin {
		return nil, &workflow.UnauthorizedError{RequiredRole: models.RoleAdmin, ActualRole: principal.Role}
	}
	expenses, err := s.expenses.ListByCompany(principal.CompanyID)
	if err != nil {
		return nil, err
	}
	return s.toViews(expenses)
}

// ListTeam returns expenses submitted by the principal's direct
// reports.
func (s *ExpenseService) ListTeam(principal models.Principal) ([]*ExpenseView, error) {
	expenses, err := s.expenses.ListByManager(principal.ID)
	if err != nil {
		return nil, err
	}
	return s.toViews(expenses)
}

func (s *ExpenseService) toViews(expenses []*models.Expense) ([]*ExpenseView, error) {
	views := make([]*ExpenseView, 0, len(expenses))
	for _, expense := range expenses {
		var active *models.ExpenseApproval
		if expense.Status == models.StatusPending {
			var err error
			active, err = s.engine.ActiveStep(expense.ID)
			if err != nil {
				return nil, err
			}
		}

		views = append(views, &ExpenseView{
			ExpenseID:     expense.ID,
			Category:      expense.Category,
			Amount:        expense.Amount,
			Currency:      expense.Currency,
			Description:   expense.Description,
			ExpenseDate:   expense.ExpenseDate,
			DisplayStatus: models.DisplayStatus(expense, active),
			SubmittedAt:   expense.CreatedAt,
		})
	}
	return views, nil
}
