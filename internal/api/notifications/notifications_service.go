package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var _ NotificationsService = (*NotificationsServiceImpl)(nil)

type NotificationsService interface {
	// NotifyStatusChange records a status-change notification for the
	// package recipient.
	NotifyStatusChange(ctx context.Context, userID, packageID uuid.UUID, trackingNumber string, status types.PackageStatus) error

	// Broadcast sends a message to every user (admin back office).
	Broadcast(ctx context.Context, message string) (int64, error)

	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]types.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

type NotificationsServiceImpl struct {
	logger *slog.Logger
	repo   NotificationsRepo
}

func NewNotificationsService(repo NotificationsRepo, logger *slog.Logger) *NotificationsServiceImpl {
	return &NotificationsServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *NotificationsServiceImpl) NotifyStatusChange(ctx context.Context, userID, packageID uuid.UUID, trackingNumber string, status types.PackageStatus) error {
	message := fmt.Sprintf("Package %s is now %s", trackingNumber, statusLabel(status))
	return s.repo.Insert(ctx, userID, &packageID, types.NotificationKindStatusChange, message)
}

func (s *NotificationsServiceImpl) Broadcast(ctx context.Context, message string) (int64, error) {
	count, err := s.repo.InsertForAllUsers(ctx, types.NotificationKindBroadcast, message)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Broadcast notification sent", slog.Int64("recipients", count))
	return count, nil
}

func (s *NotificationsServiceImpl) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]types.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

func (s *NotificationsServiceImpl) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func statusLabel(status types.PackageStatus) string {
	switch status {
	case types.PackageStatusPending:
		return "awaiting pickup"
	case types.PackageStatusInTransit:
		return "in transit"
	case types.PackageStatusOutForDelivery:
		return "out for delivery"
	case types.PackageStatusDelivered:
		return "delivered"
	case types.PackageStatusFailed:
		return "undeliverable"
	}
	return string(status)
}
