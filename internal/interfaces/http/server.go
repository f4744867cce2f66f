// Package http is the HTTP adapter: it parses requests, resolves the
// acting principal, calls the services and maps the error taxonomy to
// status codes. No workflow decisions are made here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/auth"
	"github.com/expenseflow/expenseflow/internal/service"
	"github.com/expenseflow/expenseflow/internal/workflow"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// NewServer creates a new HTTP server wired to the given services
func NewServer(
	config ServerConfig,
	authService *auth.Service,
	expenseService *service.ExpenseService,
	workflowService *service.WorkflowService,
	engine *workflow.Engine,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	server := &Server{
		config: config,
		router: router,
		logger: logger,
	}

	router.Use(gin.Recovery())
	router.Use(server.loggingMiddleware())

	handlers := NewHandlers(authService, expenseService, workflowService, engine, logger)

	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api")
	api.POST("/auth/register", handlers.Register)
	api.POST("/auth/login", handlers.Login)

	authed := api.Group("")
	authed.Use(principalMiddleware(authService))
	authed.POST("/users", handlers.CreateUser)
	authed.POST("/workflows", handlers.CreateWorkflow)
	authed.POST("/expenses", handlers.SubmitExpense)
	authed.GET("/expenses", handlers.ListMyExpenses)
	authed.GET("/expenses/company", handlers.ListCompanyExpenses)
	authed.GET("/expenses/team", handlers.ListTeamExpenses)
	authed.GET("/approvals/pending", handlers.ListPendingApprovals)
	authed.POST("/approvals/:id/decision", handlers.Decide)

	return server
}

// loggingMiddleware logs each request with latency and status
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}
