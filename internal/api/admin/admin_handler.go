// Package admin exposes the back-office surface: listing profiles, changing
// roles and removing accounts. Every route here sits behind the admin role
// check.
package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/api"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/access"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/auth"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

type AdminHandler struct {
	accessService access.AccessService
	authRepo      auth.AuthRepo
	logger        *slog.Logger
}

func NewAdminHandler(accessService access.AccessService, authRepo auth.AuthRepo, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		accessService: accessService,
		authRepo:      authRepo,
		logger:        logger,
	}
}

func (h *AdminHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListProfiles"))

	profiles, err := h.accessService.ListProfiles(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list profiles", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profiles)
}

func (h *AdminHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetProfile"))

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	profile, err := h.accessService.GetProfile(ctx, userID.String())
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Profile not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch profile", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

type updateRoleRequest struct {
	Role types.Role `json:"role"`
}

// UpdateRole changes a user's role. An admin changing their own role is
// permitted; the act is logged with both ids so it can be audited.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateRole"))

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req updateRoleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Role.Valid() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "role must be 'admin' or 'user'")
		return
	}

	actorID, _ := auth.PrincipalID(ctx)
	if actorID == userID.String() && req.Role != types.RoleAdmin {
		l.WarnContext(ctx, "Admin demoting own account",
			slog.String("actorID", actorID),
			slog.String("role", string(req.Role)))
	}

	err = h.accessService.UpdateRole(ctx, userID.String(), req.Role)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Profile not found")
		case errors.Is(err, types.ErrBadRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		default:
			l.ErrorContext(ctx, "Failed to update role", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update role")
		}
		return
	}

	l.InfoContext(ctx, "Role updated",
		slog.String("actorID", actorID),
		slog.String("targetID", userID.String()),
		slog.String("role", string(req.Role)))

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Role updated",
	})
}

// RemoveUser deletes the account, its profile and all refresh tokens.
func (h *AdminHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "RemoveUser"))

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	if err := h.authRepo.InvalidateAllUserRefreshTokens(ctx, userID.String()); err != nil {
		l.ErrorContext(ctx, "Failed to revoke refresh tokens", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to remove user")
		return
	}

	// The profile may be absent for accounts that never resolved; that is
	// not an error here.
	if err := h.accessService.RemoveProfile(ctx, userID.String()); err != nil && !errors.Is(err, types.ErrNotFound) {
		l.ErrorContext(ctx, "Failed to remove profile", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to remove user")
		return
	}

	if err := h.authRepo.DeleteUser(ctx, userID.String()); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to delete user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to remove user")
		return
	}

	l.InfoContext(ctx, "User removed", slog.String("userID", userID.String()))

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "User removed",
	})
}
