// Package service holds the authentication business logic.
//
// AuthService sits between the HTTP handlers and its collaborators:
//
//	handlers → AuthService → UserRepository (accounts)
//	                       → identity.Gateway (credential verdicts)
//	                       → TokenService / PasswordService
//	                       → config.Store (runtime admin settings)
//	                       → webhook.Notifier (signup events)
//
// The external identity provider is authoritative for sign-in. The local
// store is the system of record for everything else: roles, profiles, API
// keys, and the password used by /update/password.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/authhub/internal/apperror"
	"github.com/sakif/authhub/internal/auth"
	"github.com/sakif/authhub/internal/config"
	"github.com/sakif/authhub/internal/identity"
	"github.com/sakif/authhub/internal/model"
	"github.com/sakif/authhub/internal/repository"
	"github.com/sakif/authhub/internal/webhook"
)

const defaultProfileImage = "/user.png"

// AuthService handles account reconciliation and session issuance.
type AuthService struct {
	users     repository.UserRepository
	gateway   identity.Gateway
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	cfg       *config.Store
	webhooks  *webhook.Notifier
	logger    *slog.Logger

	// AuthRequired mirrors the deployment mode: when false (open mode),
	// the signup-enabled gate is skipped.
	AuthRequired bool
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	gateway identity.Gateway,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	cfg *config.Store,
	webhooks *webhook.Notifier,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		gateway:      gateway,
		tokens:       tokens,
		passwords:    passwords,
		cfg:          cfg,
		webhooks:     webhooks,
		logger:       logger,
		AuthRequired: true,
	}
}

// AuthResult bundles the account and its freshly issued token so the handler
// can set the cookie and write the response in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// issueToken reads the configured session lifetime at issuance time, so an
// admin changing JWT_EXPIRES_IN affects the very next sign-in.
func (s *AuthService) issueToken(userID string) (string, error) {
	return s.tokens.Issue(userID, s.cfg.SessionTTL())
}

// normalizeEmail lowercases and trims; all storage and lookups use this form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmailFormat(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// SignIn verifies the credentials with the external identity provider and
// returns a session for the matching local account, provisioning one on
// first sign-in.
//
// Every failure mode the caller can observe is the same generic invalid
// credentials error; provider details stay in the server log.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	if _, err := s.gateway.Authenticate(ctx, email, password); err != nil {
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			s.logger.Error("identity provider error during sign-in", "error", err)
		}
		return nil, apperror.InvalidCredentials()
	}

	// Provision lazily on first sign-in. The account is externally managed:
	// no local password, display name from the email's local part. The
	// insert-if-absent primitive makes concurrent first sign-ins for one
	// email converge on a single row.
	name, _, _ := strings.Cut(email, "@")
	user, err := s.users.CreateIfAbsent(ctx, &model.User{
		Email:           email,
		Name:            name,
		ProfileImageURL: defaultProfileImage,
		Role:            model.RoleUser,
	}, model.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving account %s: %w", email, err)
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in", slog.String("user_id", user.ID), slog.String("role", user.Role))
	return &AuthResult{User: user, Token: token}, nil
}

// SignUp registers a new account with a locally chosen password.
//
// The first account ever created becomes an admin (decided atomically at the
// store); everyone after gets the configured default role. On success a
// signup webhook fires in the background.
func (s *AuthService) SignUp(ctx context.Context, name, email, password, profileImageURL string) (*AuthResult, error) {
	if s.AuthRequired && !s.cfg.Current().EnableSignup {
		return nil, apperror.ActionProhibited("sign up is disabled")
	}

	result, err := s.register(ctx, name, email, password, profileImageURL, "")
	if err != nil {
		return nil, err
	}

	// Fire-and-forget: the signup already succeeded, delivery is best-effort.
	if s.webhooks != nil && s.webhooks.Enabled() {
		go s.webhooks.NotifySignup(context.WithoutCancel(ctx), result.User)
	}
	return result, nil
}

// AddUser creates an account on behalf of an admin. The requested role is
// taken verbatim (it was validated at the handler), signup gating does not
// apply, and no webhook fires.
func (s *AuthService) AddUser(ctx context.Context, name, email, password, profileImageURL, role string) (*AuthResult, error) {
	return s.register(ctx, name, email, password, profileImageURL, role)
}

// register is the shared create path for SignUp and AddUser. An empty role
// defers the decision to the store: admin for the first account, the
// configured default after.
func (s *AuthService) register(ctx context.Context, name, email, password, profileImageURL, role string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if !validEmailFormat(email) {
		return nil, apperror.InvalidEmailFormat()
	}
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name must not be empty")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password must not be empty")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be at most 72 bytes")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	if profileImageURL == "" {
		profileImageURL = defaultProfileImage
	}

	user := &model.User{
		Email:           email,
		Name:            name,
		ProfileImageURL: profileImageURL,
		Role:            role,
		PasswordHash:    &hash,
	}
	if err := s.users.Create(ctx, user, s.cfg.Current().DefaultUserRole); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.EmailTaken()
		}
		s.logger.Error("creating user failed", "email", email, "error", err)
		return nil, apperror.CreateUserFailed()
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID), slog.String("role", user.Role))
	return &AuthResult{User: user, Token: token}, nil
}

// EnsureTrustedUser resolves a trusted-header identity to a local account,
// provisioning one if needed. Wired into the auth middleware as its
// EnsureUserFunc. Like sign-in provisioning the account is externally
// managed (no local password); unlike it, the first account still becomes
// the admin, since trusted-header deployments have no other signup path.
func (s *AuthService) EnsureTrustedUser(ctx context.Context, email, name string) (*model.User, error) {
	email = normalizeEmail(email)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return s.users.CreateIfAbsent(ctx, &model.User{
		Email:           email,
		Name:            name,
		ProfileImageURL: defaultProfileImage,
	}, model.RoleUser)
}

// SessionUser re-issues a token for an already-authenticated account. Backs
// GET / so an active session slides its expiry forward.
func (s *AuthService) SessionUser(ctx context.Context, user *model.User) (*AuthResult, error) {
	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// UpdateProfile changes the caller's display name and avatar.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, profileImageURL string) (*model.User, error) {
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name must not be empty")
	}
	if profileImageURL == "" {
		profileImageURL = defaultProfileImage
	}
	if err := s.users.UpdateProfile(ctx, userID, name, profileImageURL); err != nil {
		return nil, fmt.Errorf("service/auth: updating profile %s: %w", userID, err)
	}
	return s.users.GetByID(ctx, userID)
}

// UpdatePassword verifies the caller's current password against the stored
// hash, then replaces it. trustedHeaderMode callers are rejected outright:
// an upstream proxy owns their identity and there is no password to change.
// The same applies to externally managed accounts (nil hash) — there is no
// current password that could verify.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, next string, trustedHeaderMode bool) error {
	if trustedHeaderMode {
		return apperror.ActionProhibited("password changes are managed by your identity provider")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	if user.PasswordHash == nil {
		return apperror.InvalidPassword()
	}

	ok, err := s.passwords.Verify(*user.PasswordHash, current)
	if err != nil {
		return fmt.Errorf("service/auth: verifying password for %s: %w", userID, err)
	}
	if !ok {
		return apperror.InvalidPassword()
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return apperror.ValidationFailed("password", "password must be at most 72 bytes")
		}
		return fmt.Errorf("service/auth: hashing new password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/auth: storing new password for %s: %w", userID, err)
	}

	s.logger.Info("password updated", slog.String("user_id", userID))
	return nil
}

// CreateAPIKey rotates the caller's key: any previous key stops working the
// moment the new one is stored.
func (s *AuthService) CreateAPIKey(ctx context.Context, userID string) (string, error) {
	key := auth.GenerateAPIKey()
	if err := s.users.SetAPIKey(ctx, userID, key); err != nil {
		s.logger.Error("storing api key failed", "user_id", userID, "error", err)
		return "", apperror.CreateAPIKeyFailed()
	}
	s.logger.Info("api key rotated", slog.String("user_id", userID))
	return key, nil
}

// GetAPIKey returns the caller's current key, or APIKeyNotFound if none has
// been generated.
func (s *AuthService) GetAPIKey(ctx context.Context, userID string) (string, error) {
	key, err := s.users.GetAPIKey(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("service/auth: fetching api key for %s: %w", userID, err)
	}
	if key == "" {
		return "", apperror.APIKeyNotFound()
	}
	return key, nil
}

// DeleteAPIKey revokes the caller's key. Idempotent: deleting when no key
// exists succeeds.
func (s *AuthService) DeleteAPIKey(ctx context.Context, userID string) error {
	if err := s.users.SetAPIKey(ctx, userID, ""); err != nil {
		return fmt.Errorf("service/auth: clearing api key for %s: %w", userID, err)
	}
	return nil
}
