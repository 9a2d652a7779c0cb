package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Fonality-code/wayfinder-life-sub000/config"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

// Define typed context keys
type contextKey string

const PrincipalKey contextKey = "principal"

// SessionReader extracts the authenticated principal from an inbound
// request's session cookie (or bearer header). "Not authenticated" is a
// normal outcome, never an error: any transport or parsing failure is
// treated identically to an absent session (fail closed).
type SessionReader struct {
	logger *slog.Logger
	jwtCfg config.JWTConfig
}

func NewSessionReader(jwtCfg config.JWTConfig, logger *slog.Logger) *SessionReader {
	if jwtCfg.SecretKey == "" {
		panic("JWT Secret Key cannot be empty")
	}
	return &SessionReader{logger: logger, jwtCfg: jwtCfg}
}

// CurrentPrincipal returns the authenticated principal, or nil when the
// request carries no valid session.
func (sr *SessionReader) CurrentPrincipal(r *http.Request) *types.Principal {
	tokenString := sr.sessionToken(r)
	if tokenString == "" {
		return nil
	}

	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(sr.jwtCfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		sr.logger.DebugContext(r.Context(), "Session token rejected", slog.Any("error", err))
		return nil
	}

	if claims.Issuer != sr.jwtCfg.Issuer {
		sr.logger.DebugContext(r.Context(), "Session token issuer mismatch",
			slog.String("expected", sr.jwtCfg.Issuer), slog.String("actual", claims.Issuer))
		return nil
	}
	if sr.jwtCfg.Audience != "" && !verifyAudience(claims.Audience, sr.jwtCfg.Audience) {
		sr.logger.DebugContext(r.Context(), "Session token audience mismatch")
		return nil
	}

	return &types.Principal{
		ID:          claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.Username,
	}
}

// sessionToken prefers the session cookie; an Authorization bearer header is
// accepted for non-browser clients.
func (sr *SessionReader) sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sr.jwtCfg.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
		return ""
	}
	return headerParts[1]
}

// Identify resolves the principal (if any) and stores it in the request
// context. It never rejects a request; handlers that need authentication
// compose RequireAuthenticated after it.
func (sr *SessionReader) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principal := sr.CurrentPrincipal(r); principal != nil {
			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthenticated rejects requests with no principal in context.
func RequireAuthenticated(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetPrincipalFromContext(r.Context()); !ok {
				logger.WarnContext(r.Context(), "Unauthenticated request to protected route",
					slog.String("path", r.URL.Path))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipalFromContext returns the principal stored by Identify.
func GetPrincipalFromContext(ctx context.Context) (*types.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(*types.Principal)
	return principal, ok && principal != nil
}

func verifyAudience(claimsAudience jwt.ClaimStrings, expectedAudience string) bool {
	if len(claimsAudience) == 0 {
		return false
	}
	for _, aud := range claimsAudience {
		if aud == expectedAudience {
			return true
		}
	}
	return false
}

var errNoPrincipal = errors.New("no principal in context")

// PrincipalID is a convenience for handlers that only need the id.
func PrincipalID(ctx context.Context) (string, error) {
	principal, ok := GetPrincipalFromContext(ctx)
	if !ok {
		return "", errNoPrincipal
	}
	return principal.ID, nil
}
