// Package repository defines the storage interfaces the service layer
// depends on. Implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/authhub/internal/model"
)

// UserRepository is the persistence contract for accounts.
//
// All email parameters are expected pre-normalized (lowercase); the
// implementation does not normalize again.
//
// Role assignment lives here, not in the caller: both create operations run
// the "first account ever becomes admin" decision and the insert inside one
// transaction, so concurrent creates against an empty store cannot both see
// count zero.
type UserRepository interface {
	// Create stores a new user. When user.Role is empty it is decided
	// atomically: admin for the first account, fallbackRole after. Returns
	// apperror.EmailTaken if the email is already registered.
	Create(ctx context.Context, user *model.User, fallbackRole string) error

	// CreateIfAbsent is Create with insert-if-absent semantics for
	// just-in-time provisioning: if the email is already registered it
	// returns the existing row instead of an error, so concurrent first
	// sign-ins for one email converge on a single account.
	CreateIfAbsent(ctx context.Context, user *model.User, fallbackRole string) (*model.User, error)

	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error)

	// GetFirstUser returns the earliest-created account, used to decide
	// whether admin details may be shown.
	GetFirstUser(ctx context.Context) (*model.User, error)

	UpdateProfile(ctx context.Context, id, name, profileImageURL string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// SetAPIKey stores the key for id; an empty key clears it.
	SetAPIKey(ctx context.Context, id, apiKey string) error
	GetAPIKey(ctx context.Context, id string) (string, error)
}
