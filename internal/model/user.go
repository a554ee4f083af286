package model

import (
	"time"

	"gorm.io/gorm"
)

// Dashboard roles. Anything else is denied access.
const (
	RoleAdmin    = "admin"
	RoleSalesman = "salesman"
)

// User represents a system user
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Username  string         `json:"username" gorm:"uniqueIndex;size:50"`
	Password  string         `json:"-" gorm:"size:255"` // hashed password
	Email     string         `json:"email" gorm:"uniqueIndex;size:100"`
	Phone     string         `json:"phone" gorm:"size:20"`
	Role      string         `json:"role" gorm:"size:20"`     // admin, salesman
	Status    int            `json:"status" gorm:"default:1"` // 0: inactive, 1: active
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// HasDashboardRole reports whether the user may enter any dashboard at all.
func (u *User) HasDashboardRole() bool {
	return u.Role == RoleAdmin || u.Role == RoleSalesman
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// CreateUserRequest is the admin-side payload for provisioning an account
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Role     string `json:"role" binding:"required"`
}

// LoginLog records sign-in / sign-out attempts for auditing
type LoginLog struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	UserID    int       `json:"user_id" gorm:"column:user_id"`
	Username  string    `json:"username" gorm:"type:varchar(50)"`
	Action    string    `json:"action" gorm:"type:varchar(20);not null"` // login, logout
	IP        string    `json:"ip" gorm:"type:varchar(50)"`
	UserAgent string    `json:"user_agent" gorm:"column:user_agent;type:varchar(500)"`
	Success   bool      `json:"success" gorm:"not null;default:true"`
	ErrorMsg  string    `json:"error_msg,omitempty" gorm:"column:error_msg;type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LoginLog) TableName() string {
	return "login_logs"
}
