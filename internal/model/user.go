package model

import "time"

// Dashboard user roles.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// User is a dashboard account. PasswordHash is an argon2id encoded hash and
// never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
