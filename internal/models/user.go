package models

import "time"

type User struct {
	ID        int        `json:"id" example:"1"`                   // User ID
	Username  string     `json:"username" example:"austin"`        // Unique login name
	Email     string     `json:"email" example:"user@example.com"` // User email
	IsAdmin   bool       `json:"is_admin" example:"false"`         // Admin capability flag
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
