package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/auth"
	"github.com/expenseflow/expenseflow/internal/config"
	httpserver "github.com/expenseflow/expenseflow/internal/interfaces/http"
	"github.com/expenseflow/expenseflow/internal/repository"
	"github.com/expenseflow/expenseflow/internal/service"
	"github.com/expenseflow/expenseflow/internal/voucher"
	"github.com/expenseflow/expenseflow/internal/workflow"
	"github.com/expenseflow/expenseflow/pkg/database"
	"github.com/expenseflow/expenseflow/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval server", zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	companyRepo := repository.NewCompanyRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	ruleRepo := repository.NewRuleRepository(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalRepository(db.DB, logger)
	voucherRepo := repository.NewVoucherRepository(db.DB, logger)

	// Voucher generation for fully approved expenses
	voucherGen, err := voucher.NewGenerator(
		voucher.Config{OutputDir: cfg.Voucher.OutputDir},
		expenseRepo, userRepo, companyRepo, approvalRepo, voucherRepo,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize voucher generator", zap.Error(err))
	}

	// Workflow engine
	engine := workflow.NewEngine(db, ruleRepo, expenseRepo, approvalRepo, voucherGen, logger)

	// Auth collaborator
	currencyLookup := auth.NewCurrencyLookup(
		cfg.Auth.CurrencyAPIURL,
		cfg.Auth.DefaultCurrency,
		cfg.Auth.CurrencyTimeout,
		logger,
	)
	tokenIssuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := auth.NewService(db, userRepo, companyRepo, currencyLookup, tokenIssuer, logger)

	// Services
	expenseService := service.NewExpenseService(db, expenseRepo, companyRepo, engine, logger)
	workflowService := service.NewWorkflowService(db, ruleRepo, logger)

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		authService, expenseService, workflowService, engine,
		logger,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
