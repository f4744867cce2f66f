// Package auth implements the authentication collaborator: company
// registration, login and the token-to-principal resolution consumed
// by the HTTP layer. The workflow core never reads ambient identity;
// it receives the Principal produced here as an explicit parameter.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/repository"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"github.com/expenseflow/expenseflow/pkg/database"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned on a failed login. Deliberately
// indistinguishable between unknown email and wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// RegisterRequest carries a new company + admin registration
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
	Country     string `json:"country"` // optional, used for currency lookup
}

// CreateUserRequest carries an admin-created user
type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	ManagerID *int64 `json:"manager_id,omitempty"`
}

// Service handles registration, login and principal resolution
type Service struct {
	db        *database.DB
	users     *repository.UserRepository
	companies *repository.CompanyRepository
	currency  *CurrencyLookup
	tokens    *TokenIssuer
	logger    *zap.Logger
}

// NewService creates a new auth service
func NewService(
	db *database.DB,
	users *repository.UserRepository,
	companies *repository.CompanyRepository,
	currency *CurrencyLookup,
	tokens *TokenIssuer,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:        db,
		users:     users,
		companies: companies,
		currency:  currency,
		tokens:    tokens,
		logger:    logger,
	}
}

// Register creates a new company and its admin user in one
// transaction. The company default currency comes from a best-effort
// country lookup.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, workflow.NewValidationError("email", "must be a valid email address")
	}
	if len(req.Password) < 8 {
		return nil, workflow.NewValidationError("password", "must be at least 8 characters")
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		return nil, workflow.NewValidationError("company_name", "is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// Best-effort: a lookup failure falls back to the default currency
	// and never aborts registration
	defaultCurrency := s.currency.Lookup(ctx, req.Country)

	company := &models.Company{
		Name:            strings.TrimSpace(req.CompanyName),
		DefaultCurrency: defaultCurrency,
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}

	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.companies.Create(tx, company); err != nil {
			return err
		}
		user.CompanyID = company.ID
		return s.users.Create(tx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Company registered",
		zap.Int64("company_id", company.ID),
		zap.Int64("admin_id", user.ID),
		zap.String("currency", defaultCurrency))

	return user, nil
}

// CreateUser lets an admin add an employee or manager to the company
func (s *Service) CreateUser(principal models.Principal, req CreateUserRequest) (*models.User, error) {
	if principal.Role != models.RoleAdmin {
		return nil, &workflow.UnauthorizedError{RequiredRole: models.RoleAdmin, ActualRole: principal.Role}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, workflow.NewValidationError("email", "must be a valid email address")
	}
	if len(req.Password) < 8 {
		return nil, workflow.NewValidationError("password", "must be at least 8 characters")
	}
	if strings.TrimSpace(req.Role) == "" {
		return nil, workflow.NewValidationError("role", "is required")
	}

	if req.ManagerID != nil {
		manager, err := s.users.GetByID(*req.ManagerID)
		if err != nil {
			return nil, err
		}
		if manager.CompanyID != principal.CompanyID {
			return nil, workflow.NewValidationError("manager_id", "manager belongs to a different company")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         strings.TrimSpace(req.Role),
		CompanyID:    principal.CompanyID,
		ManagerID:    req.ManagerID,
	}
	if err := s.users.Create(nil, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.Int64("user_id", user.ID),
		zap.Int64("company_id", user.CompanyID),
		zap.String("role", user.Role))

	return user, nil
}

// Login verifies credentials and returns a signed access token
func (s *Service) Login(email, password string) (string, error) {
	user, err := s.users.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, workflow.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(user.ID)
}

// ResolvePrincipal verifies a token and resolves the acting principal
func (s *Service) ResolvePrincipal(tokenString string) (models.Principal, error) {
	userID, err := s.tokens.Verify(tokenString)
	if err != nil {
		return models.Principal{}, err
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return models.Principal{}, err
	}

	return models.Principal{
		ID:        user.ID,
		Role:      user.Role,
		CompanyID: user.CompanyID,
	}, nil
}
