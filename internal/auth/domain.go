package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID                string
	Username          string
	Email             string
	FirstName         string
	LastName          string
	Phone             string
	PasswordHash      string
	IsActive          bool
	PreferredLanguage string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Name returns the user's display name.
func (u *User) Name() string {
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
