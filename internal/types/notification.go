package types

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationKindStatusChange NotificationKind = "status_change"
	NotificationKindBroadcast    NotificationKind = "broadcast"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	PackageID *uuid.UUID       `json:"package_id,omitempty"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
