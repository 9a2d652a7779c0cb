package types

import (
	"time"

	"github.com/google/uuid"
)

type PackageStatus string

const (
	PackageStatusPending        PackageStatus = "pending"
	PackageStatusInTransit      PackageStatus = "in_transit"
	PackageStatusOutForDelivery PackageStatus = "out_for_delivery"
	PackageStatusDelivered      PackageStatus = "delivered"
	PackageStatusFailed         PackageStatus = "failed"
)

func (s PackageStatus) Valid() bool {
	switch s {
	case PackageStatusPending, PackageStatusInTransit, PackageStatusOutForDelivery,
		PackageStatusDelivered, PackageStatusFailed:
		return true
	}
	return false
}

type Package struct {
	ID                uuid.UUID     `json:"id"`
	TrackingNumber    string        `json:"tracking_number"`
	SenderName        string        `json:"sender_name"`
	RecipientName     string        `json:"recipient_name"`
	RecipientUserID   *uuid.UUID    `json:"recipient_user_id,omitempty"`
	Origin            string        `json:"origin"`
	Destination       string        `json:"destination"`
	Status            PackageStatus `json:"status"`
	CurrentLocation   *string       `json:"current_location,omitempty"`
	RouteID           *uuid.UUID    `json:"route_id,omitempty"`
	EstimatedDelivery *time.Time    `json:"estimated_delivery,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type TrackingEvent struct {
	ID        uuid.UUID     `json:"id"`
	PackageID uuid.UUID     `json:"package_id"`
	Status    PackageStatus `json:"status"`
	Location  *string       `json:"location,omitempty"`
	Note      *string       `json:"note,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// TrackingResult is the public lookup shape: the package plus its event
// history, newest first.
type TrackingResult struct {
	Package Package         `json:"package"`
	Events  []TrackingEvent `json:"events"`
}

// CreatePackageParams is the admin-facing creation payload.
type CreatePackageParams struct {
	SenderName        string     `json:"sender_name"`
	RecipientName     string     `json:"recipient_name"`
	RecipientUserID   *uuid.UUID `json:"recipient_user_id,omitempty"`
	Origin            string     `json:"origin"`
	Destination       string     `json:"destination"`
	RouteID           *uuid.UUID `json:"route_id,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// UpdatePackageStatusParams advances a package through its lifecycle and
// appends a tracking event.
type UpdatePackageStatusParams struct {
	Status   PackageStatus `json:"status"`
	Location *string       `json:"location,omitempty"`
	Note     *string       `json:"note,omitempty"`
}
