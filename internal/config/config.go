// Package config holds the runtime-mutable admin configuration.
//
// These flags are process-wide state read on every token-issuing request and
// written only by the admin config endpoint. Instead of ad hoc globals, a
// single Store guards a Snapshot value: readers get a copy (safe to use for
// the whole request without holding a lock), and all writes funnel through
// one synchronized mutator.
package config

import (
	"sync"
	"time"

	"github.com/sakif/authhub/internal/auth"
	"github.com/sakif/authhub/internal/model"
)

// Snapshot is one consistent view of the admin configuration.
type Snapshot struct {
	ShowAdminDetails       bool   `json:"SHOW_ADMIN_DETAILS"`
	EnableSignup           bool   `json:"ENABLE_SIGNUP"`
	DefaultUserRole        string `json:"DEFAULT_USER_ROLE"`
	TokenExpiresIn         string `json:"JWT_EXPIRES_IN"`
	EnableCommunitySharing bool   `json:"ENABLE_COMMUNITY_SHARING"`
	EnableMessageRating    bool   `json:"ENABLE_MESSAGE_RATING"`
	AdminEmail             string `json:"ADMIN_EMAIL,omitempty"`
}

// Defaults returns the configuration a fresh process starts with.
func Defaults() Snapshot {
	return Snapshot{
		ShowAdminDetails:       true,
		EnableSignup:           true,
		DefaultUserRole:        model.RolePending,
		TokenExpiresIn:         "-1",
		EnableCommunitySharing: true,
		EnableMessageRating:    true,
	}
}

// Store is the synchronized holder of the current Snapshot.
type Store struct {
	mu      sync.RWMutex
	current Snapshot
}

// NewStore creates a Store seeded with the given snapshot.
func NewStore(initial Snapshot) *Store {
	return &Store{current: initial}
}

// Current returns a copy of the configuration. Last-writer-wins between
// concurrent admin updates is acceptable — updates are rare and admin-only.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies an admin-submitted snapshot and returns the resulting
// configuration.
//
// Two fields are validated per-field rather than all-or-nothing, matching the
// endpoint's contract: an unknown role or a lifetime string outside the
// duration grammar is silently dropped (the prior value is kept) while the
// rest of the update still applies.
func (s *Store) Update(next Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !model.ValidRole(next.DefaultUserRole) {
		next.DefaultUserRole = s.current.DefaultUserRole
	}
	if _, err := auth.ParseDuration(next.TokenExpiresIn); err != nil {
		next.TokenExpiresIn = s.current.TokenExpiresIn
	}
	if next.AdminEmail == "" {
		next.AdminEmail = s.current.AdminEmail
	}

	s.current = next
	return s.current
}

// SessionTTL parses the configured session lifetime. The stored string is
// validated on every write, so a parse failure here can only mean a bad
// seed value; fall back to never-expiring rather than locking everyone out.
func (s *Store) SessionTTL() time.Duration {
	ttl, err := auth.ParseDuration(s.Current().TokenExpiresIn)
	if err != nil {
		return auth.NoExpiry
	}
	return ttl
}
