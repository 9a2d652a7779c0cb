package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/api"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

type RoutesHandler struct {
	service RoutesService
	logger  *slog.Logger
}

func NewRoutesHandler(service RoutesService, logger *slog.Logger) *RoutesHandler {
	return &RoutesHandler{
		service: service,
		logger:  logger,
	}
}

func (h *RoutesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Create"))

	var params types.CreateRouteParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	route, err := h.service.Create(ctx, params)
	if err != nil {
		if errors.Is(err, types.ErrBadRequest) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to create route", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create route")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, route)
}

func (h *RoutesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Get"))

	id, err := uuid.Parse(chi.URLParam(r, "routeID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid route ID format")
		return
	}

	route, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Route not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch route", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch route")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, route)
}

func (h *RoutesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "List"))

	activeOnly := r.URL.Query().Get("active") == "true"

	routes, err := h.service.List(ctx, activeOnly)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list routes", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list routes")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, routes)
}

func (h *RoutesHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Update"))

	id, err := uuid.Parse(chi.URLParam(r, "routeID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid route ID format")
		return
	}

	var params types.UpdateRouteParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	route, err := h.service.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Route not found")
			return
		}
		l.ErrorContext(ctx, "Failed to update route", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update route")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, route)
}

type replaceWaypointsRequest struct {
	Waypoints []string `json:"waypoints"`
}

func (h *RoutesHandler) ReplaceWaypoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ReplaceWaypoints"))

	id, err := uuid.Parse(chi.URLParam(r, "routeID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid route ID format")
		return
	}

	var req replaceWaypointsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	waypoints, err := h.service.ReplaceWaypoints(ctx, id, req.Waypoints)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrBadRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Route not found")
		default:
			l.ErrorContext(ctx, "Failed to replace waypoints", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to replace waypoints")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, waypoints)
}

func (h *RoutesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Delete"))

	id, err := uuid.Parse(chi.URLParam(r, "routeID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid route ID format")
		return
	}

	err = h.service.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Route not found")
			return
		}
		l.ErrorContext(ctx, "Failed to delete route", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete route")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Route deleted",
	})
}
