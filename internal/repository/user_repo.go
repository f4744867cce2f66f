package repository

import (
	"database/sql"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"go.uber.org/zap"
)

const userColumns = `id, email, password_hash, role, company_id, manager_id, created_at`

// UserRepository handles user persistence
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user. A duplicate email fails with ErrConflict.
func (r *UserRepository) Create(tx *sql.Tx, user *models.User) error {
	result, err := conn(r.db, tx).Exec(
		`INSERT INTO users (email, password_hash, role, company_id, manager_id) VALUES (?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.Role, user.CompanyID, user.ManagerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return workflow.ErrConflict
		}
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	return nil
}

// GetByID retrieves a user by ID, or ErrNotFound
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	return r.get(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email, or ErrNotFound
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return r.get(`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) get(query string, arg interface{}) (*models.User, error) {
	var user models.User
	var managerID sql.NullInt64

	err := r.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CompanyID,
		&managerID,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if managerID.Valid {
		user.ManagerID = &managerID.Int64
	}
	return &user, nil
}
