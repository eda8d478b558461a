package users

import (
	"time"

	"github.com/virtuallab/virtuallab/internal/authz"
)

// User represents a managed account as seen by administrators.
type User struct {
	ID                string       `json:"id"`
	Username          string       `json:"username"`
	Email             string       `json:"email"`
	FirstName         string       `json:"first_name"`
	LastName          string       `json:"last_name"`
	Phone             string       `json:"phone,omitempty"`
	PreferredLanguage string       `json:"preferred_language,omitempty"`
	IsActive          bool         `json:"is_active"`
	Roles             []authz.Role `json:"roles"`
	LastLoginAt       *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Name renders the display name used across listings.
func (u User) Name() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// CreateInput carries fields for a new account.
type CreateInput struct {
	Username          string
	Email             string
	Password          string
	FirstName         string
	LastName          string
	Phone             string
	PreferredLanguage string
	Roles             []authz.Role
}

// UpdateInput carries mutable profile fields. Nil pointers leave the
// stored value untouched.
type UpdateInput struct {
	Email             *string
	FirstName         *string
	LastName          *string
	Phone             *string
	PreferredLanguage *string
}

// ListFilter narrows user listings.
type ListFilter struct {
	Query   string
	Role    authz.Role
	Active  *bool
	Page    int
	PerPage int
}
