package main

import (
	"fmt"
	"net/http"
	"os"

	"centavo/internal/cache"
	"centavo/internal/config"
	"centavo/internal/database"
	"centavo/internal/handlers"
	"centavo/internal/logger"
	"centavo/internal/middleware"
	"centavo/internal/services"
	"centavo/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "centavo/internal/docs" // Import swagger docs
)

// @title           Centavo API
// @version         1.0
// @description     Centavo is a multi-currency personal finance ledger with atomic transfers, exchange-rate resolution, budgets and savings goals.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Rate resolution cache
	rateCache := cache.New(nil)
	rateCache.SetTTL("rate", appConfig.RateCacheTTL)

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	accountService := services.NewAccountService(db, appConfig)
	categoryService := services.NewCategoryService(db)
	rateService := services.NewRateService(db, rateCache)
	transactionService := services.NewTransactionService(db, accountService, rateService)
	transferService := services.NewTransferService(db, accountService, rateService)
	budgetService := services.NewBudgetService(db, transactionService)
	goalService := services.NewGoalService(db, rateService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	transferHandler := handlers.NewTransferHandler(transferService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	goalHandler := handlers.NewGoalHandler(goalService)
	rateHandler := handlers.NewRateHandler(rateService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Metrics())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	router.GET("/metrics", middleware.MetricsHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Account routes
	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.PUT("/balances", accountHandler.UpdateBalances)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)
	accounts.POST("/:id/deactivate", accountHandler.DeactivateAccount)
	accounts.GET("/:id/verify", accountHandler.VerifyLedger)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Transfer routes
	transfers := protected.Group("/transfers")
	transfers.POST("", transferHandler.CreateTransfer)
	transfers.GET("/:id", transferHandler.GetTransferByID)
	transfers.DELETE("/:id", transferHandler.DeleteTransfer)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Budget routes
	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetUserBudgets)
	budgets.GET("/summary", budgetHandler.GetMonthSummary)
	budgets.GET("/alerts", budgetHandler.GetBudgetAlerts)
	budgets.POST("/copy", budgetHandler.CopyBudgets)
	budgets.GET("/:id", budgetHandler.GetBudgetWithProgress)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	// Goal routes
	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetUserGoals)
	goals.GET("/summary", goalHandler.GetGoalsSummary)
	goals.GET("/deadlines", goalHandler.GetGoalsNearingDeadline)
	goals.POST("/sync", goalHandler.SyncLinkedGoals)
	goals.GET("/:id", goalHandler.GetGoalWithProgress)
	goals.PUT("/:id", goalHandler.UpdateGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)
	goals.POST("/:id/contribute", goalHandler.AddContribution)
	goals.POST("/:id/withdraw", goalHandler.RemoveContribution)

	// Exchange rate routes
	rates := protected.Group("/rates")
	rates.GET("", rateHandler.GetRate)
	rates.POST("", rateHandler.IngestRates)
	rates.GET("/history", rateHandler.GetRateHistory)
	rates.GET("/currencies", rateHandler.GetSupportedCurrencies)

	// Report routes
	reports := protected.Group("/reports")
	reports.GET("/monthly", transactionHandler.GetMonthlyReport)
	reports.GET("/categories", transactionHandler.GetCategoryBreakdown)
	reports.GET("/cashflow", transactionHandler.GetCashFlow)

	log.Infof("Starting Centavo backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
