package repository

import (
	"database/sql"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"go.uber.org/zap"
)

// CompanyRepository handles company persistence
type CompanyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sql.DB, logger *zap.Logger) *CompanyRepository {
	return &CompanyRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new company
func (r *CompanyRepository) Create(tx *sql.Tx, company *models.Company) error {
	result, err := conn(r.db, tx).Exec(
		`INSERT INTO companies (name, default_currency) VALUES (?, ?)`,
		company.Name, company.DefaultCurrency,
	)
	if err != nil {
		r.logger.Error("Failed to create company", zap.Error(err))
		return fmt.Errorf("failed to create company: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	company.ID = id
	return nil
}

// GetByID retrieves a company by ID, or ErrNotFound
func (r *CompanyRepository) GetByID(id int64) (*models.Company, error) {
	var company models.Company
	err := r.db.QueryRow(
		`SELECT id, name, default_currency, created_at FROM companies WHERE id = ?`,
		id,
	).Scan(&company.ID, &company.Name, &company.DefaultCurrency, &company.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get company", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}
