package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var _ NotificationsRepo = (*PostgresNotificationsRepo)(nil)

// NotificationsRepo defines the contract for notification persistence.
type NotificationsRepo interface {
	Insert(ctx context.Context, userID uuid.UUID, packageID *uuid.UUID, kind types.NotificationKind, message string) error
	InsertForAllUsers(ctx context.Context, kind types.NotificationKind, message string) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]types.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

type PostgresNotificationsRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresNotificationsRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresNotificationsRepo {
	return &PostgresNotificationsRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresNotificationsRepo) Insert(ctx context.Context, userID uuid.UUID, packageID *uuid.UUID, kind types.NotificationKind, message string) error {
	_, err := r.pgpool.Exec(ctx,
		"INSERT INTO notifications (user_id, package_id, kind, message) VALUES ($1, $2, $3, $4)",
		userID, packageID, kind, message)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// InsertForAllUsers fans a broadcast out to every known user in one
// statement.
func (r *PostgresNotificationsRepo) InsertForAllUsers(ctx context.Context, kind types.NotificationKind, message string) (int64, error) {
	tag, err := r.pgpool.Exec(ctx,
		"INSERT INTO notifications (user_id, kind, message) SELECT id, $1, $2 FROM users",
		kind, message)
	if err != nil {
		return 0, fmt.Errorf("failed to insert broadcast notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresNotificationsRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]types.Notification, error) {
	query := `
		SELECT id, user_id, package_id, kind, message, read_at, created_at
		FROM notifications WHERE user_id = $1
	`
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []types.Notification
	for rows.Next() {
		var n types.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.PackageID, &n.Kind, &n.Message, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification rows iteration failed: %w", err)
	}
	return notifications, nil
}

func (r *PostgresNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE notifications SET read_at = $1 WHERE id = $2 AND user_id = $3 AND read_at IS NULL",
		time.Now(), notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
