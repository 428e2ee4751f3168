package entities

import (
	"errors"
	"strings"
)

// RoleAdmin is the only role a dashboard session can hold
const RoleAdmin = "admin"

// SessionState represents where an admin session is in its lifecycle
type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionAuthenticating  SessionState = "authenticating"
	SessionAuthenticated   SessionState = "authenticated"
)

// AdminUser is the identity held by an authenticated dashboard session
type AdminUser struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewAdminUser creates the session identity for email
func NewAdminUser(email string) *AdminUser {
	return &AdminUser{
		Email: email,
		Role:  RoleAdmin,
	}
}

// DisplayName returns the local part of the email, "Admin" when there is none
func (u *AdminUser) DisplayName() string {
	if u == nil {
		return "Admin"
	}
	name, _, _ := strings.Cut(u.Email, "@")
	if name == "" {
		return "Admin"
	}
	return name
}

// Validate validates a restored session identity
func (u *AdminUser) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role != RoleAdmin {
		return errors.New("invalid session role")
	}
	return nil
}
