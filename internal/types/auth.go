package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated identity as issued by the identity
// provider. It is immutable from the application's point of view.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// UserAuth represents the identity-provider user record.
type UserAuth struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Hashed password, never exposed.
	Provider       string    `json:"provider,omitempty"`
	ProviderUserID string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Claims represents the custom claims included in the session token.
type Claims struct {
	UserID               string `json:"uid"`
	Username             string `json:"usr,omitempty"`
	Email                string `json:"eml"`
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt, Issuer, Audience, ...
}

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
