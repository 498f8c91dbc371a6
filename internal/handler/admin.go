package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/authhub/internal/apperror"
	"github.com/sakif/authhub/internal/auth"
	"github.com/sakif/authhub/internal/config"
	"github.com/sakif/authhub/internal/model"
	"github.com/sakif/authhub/internal/repository"
	"github.com/sakif/authhub/internal/service"
)

// AdminHandler serves the admin-only surface: explicit user creation, the
// runtime configuration, and the admin-details lookup.
type AdminHandler struct {
	svc    *service.AuthService
	cfg    *config.Store
	users  repository.UserRepository
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(svc *service.AuthService, cfg *config.Store, users repository.UserRepository, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, cfg: cfg, users: users, logger: logger}
}

type addUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ProfileImageURL string `json:"profile_image_url"`
	Role            string `json:"role"`
}

// HandleAddUser creates an account with an explicit role, e.g. a service
// account. The response carries the token for the admin's use, but no
// session cookie is set — the admin stays signed in as themselves.
//
// HTTP: POST /api/v1/auths/add (admin)
func (h *AdminHandler) HandleAddUser(w http.ResponseWriter, r *http.Request) {
	var req addUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid request body"))
		return
	}
	if !model.ValidRole(req.Role) {
		writeError(w, apperror.ValidationFailed("role", "role must be one of pending, user, admin"))
		return
	}

	result, err := h.svc.AddUser(r.Context(), req.Name, req.Email, req.Password, req.ProfileImageURL, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewSigninResponse(result.Token, result.User))
}

type adminDetailsResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HandleAdminDetails returns the contact details of the instance admin: the
// configured admin email when set, otherwise the first account ever created.
// Hidden entirely when the admin turned SHOW_ADMIN_DETAILS off.
//
// HTTP: GET /api/v1/auths/admin/details (session)
func (h *AdminHandler) HandleAdminDetails(w http.ResponseWriter, r *http.Request) {
	snap := h.cfg.Current()
	if !snap.ShowAdminDetails {
		writeError(w, apperror.ActionProhibited("admin details are hidden"))
		return
	}

	if snap.AdminEmail != "" {
		if admin, err := h.users.GetByEmail(r.Context(), snap.AdminEmail); err == nil {
			writeJSON(w, http.StatusOK, adminDetailsResponse{Name: admin.Name, Email: admin.Email})
			return
		}
		// Configured address has no account; fall through to the first user.
	}

	admin, err := h.users.GetFirstUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminDetailsResponse{Name: admin.Name, Email: admin.Email})
}

// HandleGetConfig returns the current runtime configuration.
//
// HTTP: GET /api/v1/auths/admin/config (admin)
func (h *AdminHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Current())
}

// HandleUpdateConfig applies an admin-submitted configuration and echoes the
// result. Per-field validation is silent: a bad role or lifetime string
// keeps the prior value, visible in the echoed snapshot.
//
// HTTP: POST /api/v1/auths/admin/config (admin)
func (h *AdminHandler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var next config.Snapshot
	if err := decodeJSON(r, &next); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid request body"))
		return
	}

	applied := h.cfg.Update(next)
	if user, ok := auth.UserFromContext(r.Context()); ok {
		h.logger.Info("admin config updated", slog.String("user_id", user.ID))
	}
	writeJSON(w, http.StatusOK, applied)
}
