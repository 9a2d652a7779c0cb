package types

import "time"

// Role is the authorization role carried by a profile.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Profile correlates a principal id to an authorization role. For current
// rows ID equals the principal id; legacy rows were created before id
// linkage was enforced and are matched by email instead.
type Profile struct {
	ID          string    `json:"id"`
	Email       *string   `json:"email,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Access is the caller-facing result of a role resolution. All fields are
// nil for unauthenticated requests. Role degrades to RoleUser whenever the
// profile store cannot be consulted; callers that must not act on a default
// role are expected to check Profile != nil before trusting an elevated
// role.
type Access struct {
	Principal *Principal `json:"principal"`
	Role      *Role      `json:"role"`
	Profile   *Profile   `json:"profile"`
}

// IsAdmin reports whether the resolved role is admin and was read from an
// actual profile row rather than defaulted.
func (a Access) IsAdmin() bool {
	return a.Role != nil && *a.Role == RoleAdmin && a.Profile != nil
}
