package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fabtrack/internal/config"
	"fabtrack/internal/handlers"
	"fabtrack/internal/logger"
	"fabtrack/internal/middleware"
	"fabtrack/internal/models"
	"fabtrack/internal/services"
	"fabtrack/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Config *config.Config
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Part{},
		&models.AuditLog{},
		&models.PasswordResetToken{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// noopMailer discards all outgoing mail in integration tests.
type noopMailer struct{}

func (noopMailer) SendCredentials(email, password, firstName string) error  { return nil }
func (noopMailer) SendPasswordReset(email, resetLink, firstName string) error { return nil }

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	cfg := &config.Config{
		ReportDir:      t.TempDir(),
		MaxUploadBytes: 10 * 1024 * 1024,
		FrontendURL:    "http://localhost:3000",
	}

	// Services
	auditService := services.NewAuditService(db)
	partService := services.NewPartService(db, auditService)
	ingestService := services.NewIngestService(db, cfg, auditService)
	exceptionService := services.NewExceptionService(db)
	userService := services.NewUserService(db, cfg, noopMailer{})
	labelService := services.NewLabelService()

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	partHandler := handlers.NewPartHandler(partService, ingestService, cfg)
	auditHandler := handlers.NewAuditHandler(auditService)
	exceptionHandler := handlers.NewExceptionHandler(exceptionService)
	labelHandler := handlers.NewLabelHandler(partService, labelService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/auth/me", authHandler.GetProfile)
	protected.POST("/auth/change-password", authHandler.ChangePassword)

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

	protected.GET("/audit", auditHandler.List)

	exceptions := protected.Group("/exceptions")
	exceptions.GET("/invalid", exceptionHandler.InvalidRows)
	exceptions.GET("/invalid/export", exceptionHandler.ExportInvalid)
	exceptions.GET("/edited", exceptionHandler.EditedRows)
	exceptions.GET("/edited/export", exceptionHandler.ExportEdited)
	exceptions.GET("/:id/original", exceptionHandler.OriginalValues)

	admin := protected.Group("/")
	admin.Use(middleware.AdminMiddleware())
	admin.POST("/parts/clear", partHandler.ClearAll)

	users := admin.Group("/users")
	users.POST("", userHandler.Create)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	return &testApp{DB: db, Config: cfg, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// uploadCSV posts a multipart CSV upload and returns the recorder.
func (app *testApp) uploadCSV(t *testing.T, filename, content, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/parts/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// seedUser inserts a user directly and returns it. Password is always "password123".
func (app *testApp) seedUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		IsActive:  true,
	}
	if err := app.DB.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// loginUser logs in and returns the token.
func (app *testApp) loginUser(t *testing.T, email, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["token"].(string)
}
