package access

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/api"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

type AccessHandler struct {
	service AccessService
	logger  *slog.Logger
}

func NewAccessHandler(service AccessService, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		service: service,
		logger:  logger,
	}
}

// GetMyAccess returns the caller's resolved {principal, role, profile}.
// Useful for the dashboard shell to branch UI on role.
func (h *AccessHandler) GetMyAccess(w http.ResponseWriter, r *http.Request) {
	resolved, ok := GetAccessFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resolved)
}

type updateDisplayNameRequest struct {
	DisplayName string `json:"display_name"`
}

// UpdateMyDisplayName is the only profile self-edit. Role changes go
// through the admin surface exclusively.
func (h *AccessHandler) UpdateMyDisplayName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateMyDisplayName"))

	resolved, ok := GetAccessFromContext(ctx)
	if !ok || resolved.Principal == nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req updateDisplayNameRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.DisplayName == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "display_name is required")
		return
	}

	err := h.service.UpdateDisplayName(ctx, resolved.Principal.ID, req.DisplayName)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Profile not found")
			return
		}
		l.ErrorContext(ctx, "Failed to update display name", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Profile updated",
	})
}
