package models

import "time"

// User roles
const (
	RoleAdmin   = "Admin"
	RoleSubUser = "Sub-User"
)

// User is a dashboard account
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRecord is one entry in a user's login activity, newest first,
// capped at 50 per user.
type LoginRecord struct {
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ip_address"`
	Success   bool      `json:"success"`
}
