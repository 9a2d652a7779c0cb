package notifications

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/api"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/auth"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

type NotificationsHandler struct {
	service NotificationsService
	logger  *slog.Logger
}

func NewNotificationsHandler(service NotificationsService, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		service: service,
		logger:  logger,
	}
}

// ListMine returns the caller's notifications, newest first. The unread=true
// query filters to unread only.
func (h *NotificationsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
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

	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.service.ListForUser(ctx, userID, unreadOnly)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list notifications", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list notifications")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, notifications)
}

func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "MarkRead"))

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

	notificationID, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid notification ID format")
		return
	}

	err = h.service.MarkRead(ctx, userID, notificationID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Notification not found")
			return
		}
		l.ErrorContext(ctx, "Failed to mark notification read", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to mark notification read")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Notification marked read",
	})
}

type broadcastRequest struct {
	Message string `json:"message"`
}

// Broadcast sends a notification to every user. Admin only.
func (h *NotificationsHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Broadcast"))

	var req broadcastRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "message is required")
		return
	}

	count, err := h.service.Broadcast(ctx, req.Message)
	if err != nil {
		l.ErrorContext(ctx, "Broadcast failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Broadcast failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success":    true,
		"recipients": count,
	})
}
