package types

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryRoute struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	Active      bool       `json:"active"`
	Waypoints   []Waypoint `json:"waypoints,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Waypoint struct {
	ID       uuid.UUID `json:"id"`
	RouteID  uuid.UUID `json:"route_id"`
	Position int       `json:"position"`
	Location string    `json:"location"`
}

type CreateRouteParams struct {
	Name        string   `json:"name"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Waypoints   []string `json:"waypoints,omitempty"` // Ordered locations.
}

// UpdateRouteParams uses pointers so partial updates can be distinguished
// from zero values.
type UpdateRouteParams struct {
	Name        *string `json:"name,omitempty"`
	Origin      *string `json:"origin,omitempty"`
	Destination *string `json:"destination,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}
