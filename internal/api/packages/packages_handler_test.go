package packages

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/api/auth"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

func newTrackRouter(service PackagesService) chi.Router {
	handler := NewPackagesHandler(service, slog.Default())
	r := chi.NewRouter()
	r.Get("/track/{trackingNumber}", handler.Track)
	r.Get("/me/packages", handler.ListMine)
	return r
}

func TestTrackHandler(t *testing.T) {
	t.Run("200 with package and events", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		service := newTestPackagesService(mockRepo, nil)
		router := newTrackRouter(service)

		location := "Coimbra"
		result := &types.TrackingResult{
			Package: types.Package{TrackingNumber: "WF001122334455", Status: types.PackageStatusInTransit},
			Events: []types.TrackingEvent{
				{Status: types.PackageStatusInTransit, Location: &location},
				{Status: types.PackageStatusPending},
			},
		}
		mockRepo.On("GetByTrackingNumber", mock.Anything, "WF001122334455").Return(result, nil).Once()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/track/WF001122334455", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got types.TrackingResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, types.PackageStatusInTransit, got.Package.Status)
		assert.Len(t, got.Events, 2)
	})

	t.Run("404 for unknown tracking number", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		service := newTestPackagesService(mockRepo, nil)
		router := newTrackRouter(service)

		mockRepo.On("GetByTrackingNumber", mock.Anything, "WF000000000000").Return(nil, types.ErrNotFound).Once()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/track/WF000000000000", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("400 for an oversized tracking number", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		service := newTestPackagesService(mockRepo, nil)
		router := newTrackRouter(service)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/track/"+strings.Repeat("A", 40), nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockRepo.AssertNotCalled(t, "GetByTrackingNumber", mock.Anything, mock.Anything)
	})
}

func TestListMineHandler(t *testing.T) {
	t.Run("401 without a principal", func(t *testing.T) {
		service := newTestPackagesService(new(MockPackagesRepo), nil)
		router := newTrackRouter(service)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me/packages", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("lists the caller's packages", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		service := newTestPackagesService(mockRepo, nil)
		router := newTrackRouter(service)

		principal := &types.Principal{ID: "2b1f6f2e-54a4-4f0f-9a3e-6d76c2f9a111"}
		mockRepo.On("ListByRecipient", mock.Anything, mock.Anything).Return([]types.Package{
			{TrackingNumber: "WF001122334455"},
		}, nil).Once()

		r := httptest.NewRequest(http.MethodGet, "/me/packages", nil)
		r = r.WithContext(context.WithValue(r.Context(), auth.PrincipalKey, principal))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)
		var got []types.Package
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 1)
	})
}
