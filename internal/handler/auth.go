package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/authhub/internal/apperror"
	"github.com/sakif/authhub/internal/auth"
	"github.com/sakif/authhub/internal/model"
	"github.com/sakif/authhub/internal/service"
)

// AuthHandler serves the session, credential, and API-key endpoints.
//
// Routes (mounted under /api/v1/auths):
//   - GET  /                → current session user, refreshed cookie
//   - POST /signin          → delegated credential check, sets cookie
//   - POST /signup          → local registration, sets cookie
//   - POST /update/profile  → name / avatar
//   - POST /update/password → re-authenticate, then rotate hash
//   - POST|GET|DELETE /api_key
type AuthHandler struct {
	svc    *service.AuthService
	authn  *auth.Authenticator
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here.
func NewAuthHandler(svc *service.AuthService, authn *auth.Authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, authn: authn, logger: logger}
}

// setSessionCookie stores the token in the HTTP-only session cookie.
//
// No MaxAge is set: the JWT carries its own expiry (or none), and a session
// cookie avoids the browser outliving tokens with short lifetimes. HttpOnly
// keeps the token out of reach of page scripts; SameSite=Lax withholds it
// from cross-site POSTs.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleSession returns the authenticated caller's profile with a fresh
// token, sliding the session forward.
//
// HTTP: GET /api/v1/auths/
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.InvalidCredentials())
		return
	}

	result, err := h.svc.SessionUser(r.Context(), user)
	if err != nil {
		h.logger.Error("session refresh failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, model.NewSigninResponse(result.Token, result.User))
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignIn verifies credentials with the identity provider and opens a
// session.
//
// HTTP: POST /api/v1/auths/signin
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid request body"))
		return
	}

	result, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, model.NewSigninResponse(result.Token, result.User))
}

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ProfileImageURL string `json:"profile_image_url"`
}

// HandleSignUp registers a local account and opens a session.
//
// HTTP: POST /api/v1/auths/signup
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid request body"))
		return
	}

	result, err := h.svc.SignUp(r.Context(), req.Name, req.Email, req.Password, req.ProfileImageURL)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, model.NewSigninResponse(result.Token, result.User))
}

type updateProfileRequest struct {
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// HandleUpdateProfile changes the caller's display name and avatar.
//
// HTTP: POST /api/v1/auths/update/profile
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.InvalidCredentials())
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid request body"))
		return
	}

	updated, err := h.svc.UpdateProfile(r.Context(), user.ID, req.Name, req.ProfileImageURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewUserResponse(updated))
}

type updatePasswordRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

// HandleUpdatePassword re-authenticates with the current password, then
// stores a new hash. Refused when a trusted proxy owns authentication.
//
// HTTP: POST /api/v1/auths/update/password
func (h *AuthHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.InvalidCredentials())
		return
	}

	var req updatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid request body"))
		return
	}

	err := h.svc.UpdatePassword(r.Context(), user.ID, req.Password, req.NewPassword, h.authn.TrustedHeaderMode())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type apiKeyResponse struct {
	APIKey string `json:"api_key"`
}

// HandleCreateAPIKey issues a fresh key, replacing any previous one.
//
// HTTP: POST /api/v1/auths/api_key
func (h *AuthHandler) HandleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.InvalidCredentials())
		return
	}

	key, err := h.svc.CreateAPIKey(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiKeyResponse{APIKey: key})
}

// HandleGetAPIKey returns the caller's current key.
//
// HTTP: GET /api/v1/auths/api_key
func (h *AuthHandler) HandleGetAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.InvalidCredentials())
		return
	}

	key, err := h.svc.GetAPIKey(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiKeyResponse{APIKey: key})
}

// HandleDeleteAPIKey revokes the caller's key.
//
// HTTP: DELETE /api/v1/auths/api_key
func (h *AuthHandler) HandleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.InvalidCredentials())
		return
	}

	if err := h.svc.DeleteAPIKey(r.Context(), user.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
