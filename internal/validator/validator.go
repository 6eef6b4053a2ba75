// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("user_role", validateUserRole)
		_ = v.RegisterValidation("audit_action", validateAuditAction)
	}
}

func validateUserRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "user", "admin":
		return true
	}
	return false
}

func validateAuditAction(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "CREATE", "UPDATE", "DELETE", "BULK_DELETE", "CLEAR_ALL":
		return true
	}
	return false
}
