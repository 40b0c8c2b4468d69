package models

import "time"

// UserRole enumerates the account roles known to the platform.
type UserRole string

const (
	UserRoleUser    UserRole = "user"
	UserRoleVisitor UserRole = "visitor"
	UserRoleAdmin   UserRole = "admin"
)

// User is an account that uploads resources, comments on courses and
// accumulates an activity score.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:31" json:"name"`
	Email     string    `gorm:"size:63;uniqueIndex;not null" json:"email"`
	Role      UserRole  `gorm:"size:16;not null;default:user" json:"role"`
	Activity  int       `gorm:"not null;default:1" json:"activity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
