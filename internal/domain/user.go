package domain

import (
	"strings"
	"time"
)

// User is the credential record owned by the user repository. Email is the identity key.
type User struct {
	Email         string
	ID            string
	PasswordHash  string
	Name          *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LoginAttempts int
	LockedUntil   *time.Time
}

// IsLocked reports whether the account is locked at the given instant.
// A lock that expires exactly at now is no longer in effect.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Registration is returned to the caller after a successful sign-up.
type Registration struct {
	UserID    string
	Email     string
	CreatedAt time.Time
}
