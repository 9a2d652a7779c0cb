package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/api"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/auth"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

type contextKey string

const AccessKey contextKey = "access"

// WithAccess resolves the current principal's role once per request and
// stores the result in context. Unauthenticated requests pass through with
// an empty Access.
func WithAccess(service AccessService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := auth.GetPrincipalFromContext(r.Context())
			resolved := service.Resolve(r.Context(), principal)
			ctx := context.WithValue(r.Context(), AccessKey, resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccessFromContext returns the Access stored by WithAccess.
func GetAccessFromContext(ctx context.Context) (types.Access, bool) {
	access, ok := ctx.Value(AccessKey).(types.Access)
	return access, ok
}

// RequireRole rejects requests whose resolved role does not match. The
// response is a rendered 403, not a redirect, so a transiently inconsistent
// role evaluation cannot cause a redirect loop. For elevated roles the
// profile must be non-nil: a defaulted role is never trusted with
// privilege.
func RequireRole(logger *slog.Logger, role types.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			resolved, ok := GetAccessFromContext(ctx)
			if !ok || resolved.Principal == nil {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			if resolved.Role == nil || *resolved.Role != role {
				logger.WarnContext(ctx, "Role check failed",
					slog.String("required_role", string(role)),
					slog.String("principalID", resolved.Principal.ID))
				api.ErrorResponse(w, r, http.StatusForbidden, "Insufficient permissions")
				return
			}

			if role == types.RoleAdmin && resolved.Profile == nil {
				// The store was unreachable and the role was defaulted;
				// refuse privilege rather than acting on a guess.
				logger.WarnContext(ctx, "Elevated role without backing profile refused",
					slog.String("principalID", resolved.Principal.ID))
				api.ErrorResponse(w, r, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
