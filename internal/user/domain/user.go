package domain

import (
	"errors"
	"time"
)

// User is a restaurant staff account. The auth core reads identity and role;
// account lifecycle is managed elsewhere.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	DeletedAt    *time.Time // nil when active; set timestamps are never cleared
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is the closed set of staff roles.
type Role string

const (
	RoleCook   Role = "cook"
	RoleWaiter Role = "waiter"
	RoleAdmin  Role = "administrator"
)

// ParseRole returns the Role for s, or an error when s is outside the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCook, RoleWaiter, RoleAdmin:
		return Role(s), nil
	default:
		return "", errors.New("unknown role: " + s)
	}
}

// Deleted reports whether the user has been soft-deleted. Deleted users cannot
// log in, refresh tokens, or open socket connections.
func (u *User) Deleted() bool {
	return u.DeletedAt != nil
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	return nil
}
