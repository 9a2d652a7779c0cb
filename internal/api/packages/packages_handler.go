package packages

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/api"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/auth"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

type PackagesHandler struct {
	service PackagesService
	logger  *slog.Logger
}

func NewPackagesHandler(service PackagesService, logger *slog.Logger) *PackagesHandler {
	return &PackagesHandler{
		service: service,
		logger:  logger,
	}
}

// Track is the public, unauthenticated tracking lookup.
func (h *PackagesHandler) Track(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Track"))

	trackingNumber := chi.URLParam(r, "trackingNumber")
	if trackingNumber == "" || len(trackingNumber) > 32 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid tracking number")
		return
	}

	result, err := h.service.Track(ctx, trackingNumber)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "No package found for this tracking number")
			return
		}
		l.ErrorContext(ctx, "Tracking lookup failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Tracking lookup failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// ListMine returns packages addressed to the authenticated caller.
func (h *PackagesHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListMine"))

	userIDStr, err := auth.PrincipalID(ctx)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	packages, err := h.service.ListMine(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list packages", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list packages")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, packages)
}

// List returns all packages with pagination. Admin only.
func (h *PackagesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "List"))

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	packages, err := h.service.List(ctx, limit, offset)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list packages", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list packages")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, packages)
}

// Create registers a new package. Admin only.
func (h *PackagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Create"))

	var params types.CreatePackageParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pkg, err := h.service.Create(ctx, params)
	if err != nil {
		if errors.Is(err, types.ErrBadRequest) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to create package", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create package")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, pkg)
}

// Get returns a single package by id. Admin only.
func (h *PackagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Get"))

	id, err := uuid.Parse(chi.URLParam(r, "packageID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid package ID format")
		return
	}

	pkg, err := h.service.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Package not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch package", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch package")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, pkg)
}

// UpdateStatus advances a package through its lifecycle. Admin only.
func (h *PackagesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateStatus"))

	id, err := uuid.Parse(chi.URLParam(r, "packageID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid package ID format")
		return
	}

	var params types.UpdatePackageStatusParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pkg, err := h.service.UpdateStatus(ctx, id, params)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrBadRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Package not found")
		default:
			l.ErrorContext(ctx, "Failed to update package status", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update package status")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, pkg)
}

type assignRouteRequest struct {
	RouteID *uuid.UUID `json:"route_id"`
}

// AssignRoute links a package to a delivery route, or clears the link when
// route_id is null. Admin only.
func (h *PackagesHandler) AssignRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "AssignRoute"))

	id, err := uuid.Parse(chi.URLParam(r, "packageID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid package ID format")
		return
	}

	var req assignRouteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err = h.service.AssignRoute(ctx, id, req.RouteID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Package not found")
			return
		}
		l.ErrorContext(ctx, "Failed to assign route", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to assign route")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Route assigned",
	})
}

// Delete removes a package and its tracking history. Admin only.
func (h *PackagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Delete"))

	id, err := uuid.Parse(chi.URLParam(r, "packageID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid package ID format")
		return
	}

	err = h.service.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Package not found")
			return
		}
		l.ErrorContext(ctx, "Failed to delete package", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete package")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Package deleted",
	})
}
