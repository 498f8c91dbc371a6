// Package model defines the data structures used throughout the application.
package model

import "time"

// Role values form a closed set. The first account ever created is promoted
// to RoleAdmin; everyone after that gets the configured default role unless
// an admin creates them with an explicit role.
const (
	RolePending = "pending"
	RoleUser    = "user"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the closed set.
func ValidRole(role string) bool {
	return role == RolePending || role == RoleUser || role == RoleAdmin
}

// User represents a registered user account.
//
// Email is stored lowercase — every lookup and insert normalizes it first, so
// "A@x.com" and "a@x.com" are the same account. The internal ID (xid) is
// assigned at insert time and never changes.
//
// PasswordHash is nil for accounts whose authentication is fully delegated:
// ones provisioned on first sign-in through the identity provider, or
// asserted by a trusted proxy header. No fabricated secret is ever stored
// for them; the local hash exists only for accounts that registered with a
// password, and only /update/password consults it.
//
// APIKey is a pointer for the same reason — nil means "no key", distinct
// from an empty string.
type User struct {
	ID              string    `json:"id"                db:"id"`
	Email           string    `json:"email"             db:"email"`
	Name            string    `json:"name"              db:"name"`
	ProfileImageURL string    `json:"profile_image_url" db:"profile_image_url"`
	Role            string    `json:"role"              db:"role"`
	PasswordHash    *string   `json:"-"                 db:"password_hash"` // never serialized
	APIKey          *string   `json:"-"                 db:"api_key"`
	CreatedAt       time.Time `json:"created_at"        db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"        db:"updated_at"`
}
