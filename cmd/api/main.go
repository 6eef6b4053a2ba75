package main

import (
	"fmt"
	"net/http"
	"os"

	"fabtrack/internal/config"
	"fabtrack/internal/database"
	"fabtrack/internal/handlers"
	"fabtrack/internal/logger"
	"fabtrack/internal/middleware"
	"fabtrack/internal/services"
	"fabtrack/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Fabtrack API
// @version         1.0
// @description     Fabtrack ingests CSV files of fabrication part lists, tracks edits through an audit trail, and serves exports and shop-floor labels.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	mailer := services.NewEmailService(appConfig)
	auditService := services.NewAuditService(db)
	partService := services.NewPartService(db, auditService)
	ingestService := services.NewIngestService(db, appConfig, auditService)
	exceptionService := services.NewExceptionService(db)
	userService := services.NewUserService(db, appConfig, mailer)
	labelService := services.NewLabelService()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	partHandler := handlers.NewPartHandler(partService, ingestService, appConfig)
	auditHandler := handlers.NewAuditHandler(auditService)
	exceptionHandler := handlers.NewExceptionHandler(exceptionService)
	labelHandler := handlers.NewLabelHandler(partService, labelService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

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

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/auth/me", authHandler.GetProfile)
	protected.POST("/auth/change-password", authHandler.ChangePassword)

	// Part routes
	parts := protected.Group("/parts")
	parts.POST("/upload", partHandler.Upload)
	parts.GET("", partHandler.List)
	parts.GET("/export", partHandler.Export)
	parts.GET("/error-report", partHandler.ErrorReport)
	parts.GET("/error-report/exists", partHandler.ErrorReportExists)
	parts.DELETE("", partHandler.BulkDelete)
	parts.GET("/:id", partHandler.Get)
	parts.PUT("/:id", partHandler.Update)
	parts.DELETE("/:id", partHandler.Delete)
	parts.GET("/:id/label/zpl", labelHandler.ZPL)
	parts.GET("/:id/label/pdf", labelHandler.PDF)
	parts.POST("/labels/zpl", labelHandler.BulkZPL)
	parts.POST("/labels/pdf", labelHandler.BulkPDF)

	// Audit routes
	protected.GET("/audit", auditHandler.List)

	// Exception routes
	exceptions := protected.Group("/exceptions")
	exceptions.GET("/invalid", exceptionHandler.InvalidRows)
	exceptions.GET("/invalid/export", exceptionHandler.ExportInvalid)
	exceptions.GET("/edited", exceptionHandler.EditedRows)
	exceptions.GET("/edited/export", exceptionHandler.ExportEdited)
	exceptions.GET("/:id/original", exceptionHandler.OriginalValues)

	// Admin-only routes
	admin := protected.Group("/")
	admin.Use(middleware.AdminMiddleware())
	admin.POST("/parts/clear", partHandler.ClearAll)

	users := admin.Group("/users")
	users.POST("", userHandler.Create)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	log.Infof("Starting Fabtrack backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
