package admin

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) Resolve(ctx context.Context, principal *types.Principal) types.Access {
	args := m.Called(ctx, principal)
	return args.Get(0).(types.Access)
}

func (m *MockAccessService) UpdateRole(ctx context.Context, principalID string, role types.Role) error {
	args := m.Called(ctx, principalID, role)
	return args.Error(0)
}

func (m *MockAccessService) UpdateDisplayName(ctx context.Context, principalID, displayName string) error {
	args := m.Called(ctx, principalID, displayName)
	return args.Error(0)
}

func (m *MockAccessService) GetProfile(ctx context.Context, principalID string) (*types.Profile, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Profile), args.Error(1)
}

func (m *MockAccessService) ListProfiles(ctx context.Context) ([]types.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Profile), args.Error(1)
}

func (m *MockAccessService) RemoveProfile(ctx context.Context, principalID string) error {
	args := m.Called(ctx, principalID)
	return args.Error(0)
}

// stubAuthRepo records the calls RemoveUser makes; the remaining AuthRepo
// methods are never reached from the admin surface.
type stubAuthRepo struct {
	revokedFor string
	deletedID  string
	deleteErr  error
}

func (s *stubAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	return nil, types.ErrNotFound
}

func (s *stubAuthRepo) GetUserByID(ctx context.Context, userID string) (*types.UserAuth, error) {
	return nil, types.ErrNotFound
}

func (s *stubAuthRepo) GetUserByProvider(ctx context.Context, provider, providerUserID string) (*types.UserAuth, error) {
	return nil, types.ErrNotFound
}

func (s *stubAuthRepo) Register(ctx context.Context, username, email, hashedPassword string) (string, error) {
	return "", nil
}

func (s *stubAuthRepo) CreateProviderUser(ctx context.Context, username, email, provider, providerUserID string) (string, error) {
	return "", nil
}

func (s *stubAuthRepo) LinkProvider(ctx context.Context, userID, provider, providerUserID string) error {
	return nil
}

func (s *stubAuthRepo) UpdatePassword(ctx context.Context, userID, newHashedPassword string) error {
	return nil
}

func (s *stubAuthRepo) StoreRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return nil
}

func (s *stubAuthRepo) ValidateRefreshTokenAndGetUserID(ctx context.Context, refreshToken string) (string, error) {
	return "", types.ErrUnauthenticated
}

func (s *stubAuthRepo) InvalidateRefreshToken(ctx context.Context, refreshToken string) error {
	return nil
}

func (s *stubAuthRepo) InvalidateAllUserRefreshTokens(ctx context.Context, userID string) error {
	s.revokedFor = userID
	return nil
}

func (s *stubAuthRepo) DeleteUser(ctx context.Context, userID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = userID
	return nil
}

func newAdminRouter(accessService *MockAccessService, authRepo *stubAuthRepo) chi.Router {
	handler := NewAdminHandler(accessService, authRepo, slog.Default())
	r := chi.NewRouter()
	r.Put("/admin/users/{userID}/role", handler.UpdateRole)
	r.Delete("/admin/users/{userID}", handler.RemoveUser)
	return r
}

func TestUpdateRoleHandler(t *testing.T) {
	t.Run("400 for an unknown role", func(t *testing.T) {
		accessService := new(MockAccessService)
		router := newAdminRouter(accessService, &stubAuthRepo{})

		target := uuid.New()
		body := bytes.NewBufferString(`{"role":"superuser"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/users/"+target.String()+"/role", body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		accessService.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("400 for a malformed user id", func(t *testing.T) {
		accessService := new(MockAccessService)
		router := newAdminRouter(accessService, &stubAuthRepo{})

		body := bytes.NewBufferString(`{"role":"admin"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/users/not-a-uuid/role", body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("404 when no profile exists", func(t *testing.T) {
		accessService := new(MockAccessService)
		router := newAdminRouter(accessService, &stubAuthRepo{})

		target := uuid.New()
		accessService.On("UpdateRole", mock.Anything, target.String(), types.RoleAdmin).Return(types.ErrNotFound).Once()

		body := bytes.NewBufferString(`{"role":"admin"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/users/"+target.String()+"/role", body))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("200 on success", func(t *testing.T) {
		accessService := new(MockAccessService)
		router := newAdminRouter(accessService, &stubAuthRepo{})

		target := uuid.New()
		accessService.On("UpdateRole", mock.Anything, target.String(), types.RoleUser).Return(nil).Once()

		body := bytes.NewBufferString(`{"role":"user"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/users/"+target.String()+"/role", body))

		assert.Equal(t, http.StatusOK, rec.Code)
		accessService.AssertExpectations(t)
	})
}

func TestRemoveUserHandler(t *testing.T) {
	t.Run("removes tokens, profile and account", func(t *testing.T) {
		accessService := new(MockAccessService)
		authRepo := &stubAuthRepo{}
		router := newAdminRouter(accessService, authRepo)

		target := uuid.New()
		accessService.On("RemoveProfile", mock.Anything, target.String()).Return(nil).Once()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/users/"+target.String(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, target.String(), authRepo.revokedFor)
		assert.Equal(t, target.String(), authRepo.deletedID)
	})

	t.Run("missing profile is tolerated", func(t *testing.T) {
		accessService := new(MockAccessService)
		authRepo := &stubAuthRepo{}
		router := newAdminRouter(accessService, authRepo)

		target := uuid.New()
		accessService.On("RemoveProfile", mock.Anything, target.String()).Return(types.ErrNotFound).Once()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/users/"+target.String(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, target.String(), authRepo.deletedID)
	})

	t.Run("404 for an unknown account", func(t *testing.T) {
		accessService := new(MockAccessService)
		authRepo := &stubAuthRepo{deleteErr: types.ErrNotFound}
		router := newAdminRouter(accessService, authRepo)

		target := uuid.New()
		accessService.On("RemoveProfile", mock.Anything, target.String()).Return(types.ErrNotFound).Once()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/users/"+target.String(), nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
