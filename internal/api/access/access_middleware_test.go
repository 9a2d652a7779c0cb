package access

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

func requestWithAccess(access types.Access) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	ctx := context.WithValue(r.Context(), AccessKey, access)
	return r.WithContext(ctx)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRole(t *testing.T) {
	middleware := RequireRole(slog.Default(), types.RoleAdmin)

	t.Run("401 when no access in context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("401 when access has no principal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		middleware(okHandler()).ServeHTTP(rec, requestWithAccess(types.Access{}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("403 rendered for wrong role, no redirect", func(t *testing.T) {
		role := types.RoleUser
		access := types.Access{
			Principal: &types.Principal{ID: "user-1"},
			Role:      &role,
			Profile:   &types.Profile{ID: "user-1", Role: types.RoleUser},
		}

		rec := httptest.NewRecorder()
		middleware(okHandler()).ServeHTTP(rec, requestWithAccess(access))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Location"))
	})

	t.Run("403 for admin role with defaulted profile", func(t *testing.T) {
		// Role claims admin but the profile is nil, meaning the store could
		// not be consulted. Privilege must be refused.
		role := types.RoleAdmin
		access := types.Access{
			Principal: &types.Principal{ID: "user-2"},
			Role:      &role,
			Profile:   nil,
		}

		rec := httptest.NewRecorder()
		middleware(okHandler()).ServeHTTP(rec, requestWithAccess(access))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("passes a backed admin through", func(t *testing.T) {
		role := types.RoleAdmin
		access := types.Access{
			Principal: &types.Principal{ID: "admin-1"},
			Role:      &role,
			Profile:   &types.Profile{ID: "admin-1", Role: types.RoleAdmin},
		}

		rec := httptest.NewRecorder()
		middleware(okHandler()).ServeHTTP(rec, requestWithAccess(access))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestWithAccess(t *testing.T) {
	t.Run("anonymous request passes through with empty access", func(t *testing.T) {
		mockRepo := new(MockAccessRepo)
		service := newTestService(mockRepo)

		var got types.Access
		var ok bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok = GetAccessFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		WithAccess(service)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, ok)
		assert.Nil(t, got.Role)
		assert.Nil(t, got.Profile)
	})
}
