package models

import "time"

// PasswordResetToken is a single-use token mailed out by the
// forgot-password flow. Tokens expire one hour after issue.
type PasswordResetToken struct {
	Base
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
}
