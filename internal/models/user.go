package models

// Role controls what a user can see and do. Admins manage users and see
// the full audit history; regular users only see their own audit entries.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents the user model in the database
type User struct {
	Base
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `gorm:"type:varchar(16);default:user" json:"role"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
