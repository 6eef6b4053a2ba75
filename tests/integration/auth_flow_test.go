package integration

import (
	"fmt"
	"net/http"
	"testing"

	"fabtrack/internal/models"
)

func TestAuthFlow_LoginAndProfile(t *testing.T) {
	app := setupApp(t)
	app.seedUser(t, "auth@test.com", models.RoleUser)

	token := app.loginUser(t, "auth@test.com", "password123")
	if token == "" {
		t.Fatal("expected non-empty token from login")
	}

	rec := app.request("GET", "/api/v1/auth/me", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["email"] != "auth@test.com" {
		t.Errorf("expected email auth@test.com, got %v", result["email"])
	}
	if result["role"] != "user" {
		t.Errorf("expected role user, got %v", result["role"])
	}
}

func TestAuthFlow_LoginWrongPassword(t *testing.T) {
	app := setupApp(t)
	app.seedUser(t, "wrong@test.com", models.RoleUser)

	rec := app.request("POST", "/api/v1/auth/login",
		`{"email":"wrong@test.com","password":"nope"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %v", errObj["code"])
	}
}

func TestAuthFlow_InactiveAccount(t *testing.T) {
	app := setupApp(t)
	user := app.seedUser(t, "inactive@test.com", models.RoleUser)
	app.DB.Model(user).Update("is_active", false)

	rec := app.request("POST", "/api/v1/auth/login",
		`{"email":"inactive@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthFlow_NoToken(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/v1/parts", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthFlow_ChangePassword(t *testing.T) {
	app := setupApp(t)
	app.seedUser(t, "change@test.com", models.RoleUser)
	token := app.loginUser(t, "change@test.com", "password123")

	rec := app.request("POST", "/api/v1/auth/change-password",
		`{"current_password":"password123","new_password":"betterpass1"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password failed: %d %s", rec.Code, rec.Body.String())
	}

	// Old password no longer works, new one does.
	rec = app.request("POST", "/api/v1/auth/login",
		`{"email":"change@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected old password rejected, got %d", rec.Code)
	}
	app.loginUser(t, "change@test.com", "betterpass1")
}

func TestAuthFlow_PasswordReset(t *testing.T) {
	app := setupApp(t)
	user := app.seedUser(t, "reset@test.com", models.RoleUser)

	rec := app.request("POST", "/api/v1/auth/forgot-password",
		`{"email":"reset@test.com"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot password failed: %d %s", rec.Code, rec.Body.String())
	}

	var token models.PasswordResetToken
	if err := app.DB.Where("user_id = ?", user.ID).First(&token).Error; err != nil {
		t.Fatalf("expected a reset token: %v", err)
	}

	body := fmt.Sprintf(`{"token":%q,"password":"resetpass1"}`, token.Token)
	rec = app.request("POST", "/api/v1/auth/reset-password", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset password failed: %d %s", rec.Code, rec.Body.String())
	}

	app.loginUser(t, "reset@test.com", "resetpass1")

	// The token is single-use.
	rec = app.request("POST", "/api/v1/auth/reset-password", body, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected reused token rejected, got %d", rec.Code)
	}
}

func TestAuthFlow_UnknownEmailForgotPasswordIsSilent(t *testing.T) {
	app := setupApp(t)

	rec := app.request("POST", "/api/v1/auth/forgot-password",
		`{"email":"ghost@test.com"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown email, got %d", rec.Code)
	}
}
