package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"fabtrack/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active regular user with a hashed password
// and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithRole(t, db, email, models.RoleUser)
}

// CreateTestAdmin creates an active admin user.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("admin%d@test.com", nextID())
	return CreateTestUserWithRole(t, db, email, models.RoleAdmin)
}

// CreateTestUserWithRole creates a user with the given email and role.
// The password is always "password123".
func CreateTestUserWithRole(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
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
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestPart creates a valid part row with unique marks.
func CreateTestPart(t *testing.T, db *gorm.DB) *models.Part {
	t.Helper()

	n := nextID()
	part := &models.Part{
		PartMark:     fmt.Sprintf("P-%d", n),
		AssemblyMark: fmt.Sprintf("A-%d", n),
		Material:     "S355",
		Thickness:    "10",
		Quantity:     1,
		IsValid:      true,
	}
	if err := db.Create(part).Error; err != nil {
		t.Fatalf("failed to create test part: %v", err)
	}
	return part
}

// CreateTestParts creates n valid part rows.
func CreateTestParts(t *testing.T, db *gorm.DB, n int) []models.Part {
	t.Helper()

	parts := make([]models.Part, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, *CreateTestPart(t, db))
	}
	return parts
}
