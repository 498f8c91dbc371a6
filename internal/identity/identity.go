// Package identity talks to the external identity provider that owns the
// actual credential check. Sign-in never compares passwords locally; it asks
// the provider and trusts its answer.
package identity

import (
	"context"
	"errors"
)

// Identity is what the provider tells us about a verified account.
type Identity struct {
	Subject string
	Email   string
}

// Gateway verifies email/password pairs against an identity provider.
type Gateway interface {
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
}

// ErrInvalidCredentials means the provider rejected the email/password pair.
// The provider's own error text is logged server-side and never surfaced.
var ErrInvalidCredentials = errors.New("identity: invalid credentials")

// ErrUnavailable means the provider could not be reached or answered with
// something other than a credential verdict.
var ErrUnavailable = errors.New("identity: provider unavailable")

// Disabled is the Gateway for deployments without a provider (trusted-header
// or open mode). Password sign-in has nothing to delegate to and fails
// closed.
type Disabled struct{}

func (Disabled) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	return nil, ErrInvalidCredentials
}
