package models

import (
	"time"
)

// User represents a registered account
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser" db:"is_superuser"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// MaxUsernameLength is the maximum username length
const MaxUsernameLength = 150

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 8

// Actor is the identity performing a service call.
// The zero value is an anonymous caller.
type Actor struct {
	ID            string `json:"id"`
	IsStaff       bool   `json:"is_staff"`
	IsSuperuser   bool   `json:"is_superuser"`
	Authenticated bool   `json:"is_authenticated"`
}

// Anonymous returns the unauthenticated actor
func Anonymous() Actor {
	return Actor{}
}

// ActorFor builds an authenticated actor from a stored user
func ActorFor(u *User) Actor {
	return Actor{
		ID:            u.ID,
		IsStaff:       u.IsStaff,
		IsSuperuser:   u.IsSuperuser,
		Authenticated: true,
	}
}

// IsPrivileged reports staff or superuser rights
func (a Actor) IsPrivileged() bool {
	return a.Authenticated && (a.IsStaff || a.IsSuperuser)
}

// RegisterRequest is the signup payload
type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

// LoginRequest is the login payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned after register or login
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
