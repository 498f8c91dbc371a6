package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/authhub/internal/model"
)

// contextKey is an unexported type for context keys in this package.
//
// Using a package-private type means only this package can read or write the
// authenticated user in the request context — no string-key collisions with
// other packages.
type contextKey string

const userKey contextKey = "user"

// UserLookup is the slice of the account store the middleware needs: resolving
// a token subject or an API key to a full account record.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByAPIKey(ctx context.Context, key string) (*model.User, error)
}

// EnsureUserFunc provisions-or-fetches an account for a trusted-header
// identity. Wired to the auth service at startup; a callback keeps this
// package from depending on the service layer.
type EnsureUserFunc func(ctx context.Context, email, name string) (*model.User, error)

// Authenticator resolves the caller's identity for protected routes.
//
// Credential sources, in order:
//  1. Trusted email header (when configured) — an upstream proxy asserts the
//     identity; no local password or token is involved.
//  2. Authorization: Bearer — either an opaque "sk-" API key (database
//     lookup) or a JWT (signature check, then lookup by subject).
//  3. The "token" HTTP-only cookie — a JWT set at sign-in.
type Authenticator struct {
	tokens *TokenService
	users  UserLookup

	// TrustedEmailHeader enables trusted-header mode when non-empty.
	TrustedEmailHeader string
	// TrustedNameHeader optionally carries the display name in that mode.
	TrustedNameHeader string
	// EnsureTrustedUser must be set when TrustedEmailHeader is.
	EnsureTrustedUser EnsureUserFunc
}

// NewAuthenticator creates an Authenticator for cookie/bearer authentication.
// Trusted-header fields are set directly when that mode is enabled.
func NewAuthenticator(tokens *TokenService, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// RequireUser enforces authentication. On success the resolved account is
// stored in the request context; otherwise the chain stops with 401.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.resolve(r)
		if err != nil {
			http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin enforces authentication AND the admin role.
//
// 401 and 403 are kept distinct: 401 means "we don't know who you are",
// 403 means "we know exactly who you are, and the answer is no".
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		if user == nil || user.Role != model.RoleAdmin {
			http.Error(w, `{"error":"forbidden","message":"admin privileges required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// UserFromContext retrieves the authenticated account from the request
// context. Returns (nil, false) on routes without RequireUser.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// TrustedHeaderMode reports whether identity is asserted by an upstream proxy.
// Password updates are rejected in this mode — there is no local password to
// change.
func (a *Authenticator) TrustedHeaderMode() bool {
	return a.TrustedEmailHeader != ""
}

func (a *Authenticator) resolve(r *http.Request) (*model.User, error) {
	ctx := r.Context()

	if a.TrustedHeaderMode() {
		email := strings.ToLower(strings.TrimSpace(r.Header.Get(a.TrustedEmailHeader)))
		if email == "" {
			return nil, errMissingCredentials
		}
		name := ""
		if a.TrustedNameHeader != "" {
			name = strings.TrimSpace(r.Header.Get(a.TrustedNameHeader))
		}
		return a.EnsureTrustedUser(ctx, email, name)
	}

	if header := r.Header.Get("Authorization"); header != "" {
		credential, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return nil, errMissingCredentials
		}
		if IsAPIKey(credential) {
			return a.users.GetByAPIKey(ctx, credential)
		}
		return a.lookupBySession(ctx, credential)
	}

	cookie, err := r.Cookie("token")
	if err != nil {
		// http.ErrNoCookie — the request is simply anonymous
		return nil, errMissingCredentials
	}
	return a.lookupBySession(ctx, cookie.Value)
}

func (a *Authenticator) lookupBySession(ctx context.Context, token string) (*model.User, error) {
	userID, err := a.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return a.users.GetByID(ctx, userID)
}

var errMissingCredentials = &credentialError{"missing credentials"}

type credentialError struct{ msg string }

func (e *credentialError) Error() string { return "auth: " + e.msg }
