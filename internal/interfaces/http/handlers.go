package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/auth"
	"github.com/expenseflow/expenseflow/internal/service"
	"github.com/expenseflow/expenseflow/internal/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	authService     *auth.Service
	expenseService  *service.ExpenseService
	workflowService *service.WorkflowService
	engine          *workflow.Engine
	logger          *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	authService *auth.Service,
	expenseService *service.ExpenseService,
	workflowService *service.WorkflowService,
	engine *workflow.Engine,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		authService:     authService,
		expenseService:  expenseService,
		workflowService: workflowService,
		engine:          engine,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeError maps the error taxonomy to HTTP status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	var validationErr *workflow.ValidationError
	var unauthorizedErr *workflow.UnauthorizedError

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		message = validationErr.Error()
	case errors.As(err, &unauthorizedErr):
		status = http.StatusForbidden
		message = unauthorizedErr.Error()
	case errors.Is(err, workflow.ErrNotFound):
		status = http.StatusNotFound
		message = "not found"
	case errors.Is(err, workflow.ErrConflict):
		status = http.StatusConflict
		message = "already exists"
	case errors.Is(err, workflow.ErrInvalidState):
		status = http.StatusConflict
		message = "approval instance is no longer pending"
	case errors.Is(err, workflow.ErrNoWorkflow):
		// Setup fault: resubmitting different data can't fix it
		status = http.StatusUnprocessableEntity
		message = workflow.ErrNoWorkflow.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		message = auth.ErrInvalidCredentials.Error()
	default:
		h.logger.Error("Request failed", zap.Error(err))
	}

	c.JSON(status, Response{Success: false, Error: message})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Register handles POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, workflow.NewValidationError("body", "malformed JSON"))
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, workflow.NewValidationError("body", "malformed JSON"))
		return
	}

	token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"access_token": token}})
}

// CreateUser handles POST /api/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req auth.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, workflow.NewValidationError("body", "malformed JSON"))
		return
	}

	user, err := h.authService.CreateUser(mustPrincipal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

// CreateWorkflow handles POST /api/workflows
func (h *Handlers) CreateWorkflow(c *gin.Context) {
	var req service.CreateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, workflow.NewValidationError("body", "malformed JSON"))
		return
	}

	rule, err := h.workflowService.CreateDefinition(mustPrincipal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: rule})
}

type submitExpenseRequest struct {
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	ExpenseDate string  `json:"expense_date"` // 2006-01-02
}

// SubmitExpense handles POST /api/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	var req submitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, workflow.NewValidationError("body", "malformed JSON"))
		return
	}

	var expenseDate time.Time
	if req.ExpenseDate != "" {
		var err error
		expenseDate, err = time.Parse("2006-01-02", req.ExpenseDate)
		if err != nil {
			h.writeError(c, workflow.NewValidationError("expense_date", "must be YYYY-MM-DD"))
			return
		}
	}

	expense, err := h.expenseService.Submit(mustPrincipal(c), service.SubmitExpenseRequest{
		Category:    req.Category,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		ExpenseDate: expenseDate,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"expense_id": expense.ID}})
}

// ListMyExpenses handles GET /api/expenses
func (h *Handlers) ListMyExpenses(c *gin.Context) {
	views, err := h.expenseService.History(mustPrincipal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: views})
}

// ListCompanyExpenses handles GET /api/expenses/company
func (h *Handlers) ListCompanyExpenses(c *gin.Context) {
	views, err := h.expenseService.ListCompany(mustPrincipal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: views})
}

// ListTeamExpenses handles GET /api/expenses/team
func (h *Handlers) ListTeamExpenses(c *gin.Context) {
	views, err := h.expenseService.ListTeam(mustPrincipal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: views})
}

// ListPendingApprovals handles GET /api/approvals/pending
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	pending, err := h.engine.PendingForRole(mustPrincipal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: pending})
}

type decisionRequest struct {
	Decision string `json:"decision"` // Approved or Rejected
	Comment  string `json:"comment"`
}

// Decide handles POST /api/approvals/:id/decision
func (h *Handlers) Decide(c *gin.Context) {
	instanceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.writeError(c, workflow.NewValidationError("id", "must be an integer"))
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, workflow.NewValidationError("body", "malformed JSON"))
		return
	}

	if err := h.engine.Decide(instanceID, mustPrincipal(c), req.Decision, req.Comment); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}
