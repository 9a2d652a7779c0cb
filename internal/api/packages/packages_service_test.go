package packages

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Fonality-code/wayfinder-life-sub000/config"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

// MockPackagesRepo is a mock implementation of the PackagesRepo interface
type MockPackagesRepo struct {
	mock.Mock
}

func (m *MockPackagesRepo) Create(ctx context.Context, trackingNumber string, params types.CreatePackageParams) (*types.Package, error) {
	args := m.Called(ctx, trackingNumber, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Package), args.Error(1)
}

func (m *MockPackagesRepo) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*types.TrackingResult, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TrackingResult), args.Error(1)
}

func (m *MockPackagesRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Package), args.Error(1)
}

func (m *MockPackagesRepo) ListByRecipient(ctx context.Context, userID uuid.UUID) ([]types.Package, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Package), args.Error(1)
}

func (m *MockPackagesRepo) List(ctx context.Context, limit, offset int) ([]types.Package, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Package), args.Error(1)
}

func (m *MockPackagesRepo) UpdateStatus(ctx context.Context, id uuid.UUID, params types.UpdatePackageStatusParams) (*types.Package, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Package), args.Error(1)
}

func (m *MockPackagesRepo) AssignRoute(ctx context.Context, id uuid.UUID, routeID *uuid.UUID) error {
	args := m.Called(ctx, id, routeID)
	return args.Error(0)
}

func (m *MockPackagesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockNotifier records status-change notifications.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyStatusChange(ctx context.Context, userID, packageID uuid.UUID, trackingNumber string, status types.PackageStatus) error {
	args := m.Called(ctx, userID, packageID, trackingNumber, status)
	return args.Error(0)
}

func newTestPackagesService(repo PackagesRepo, notifier Notifier) *PackagesServiceImpl {
	// nil cache: the service treats an absent cache as a pass-through.
	return NewPackagesService(repo, nil, notifier, config.TrackConfig{CacheTTL: time.Minute}, slog.Default())
}

func TestNewTrackingNumber(t *testing.T) {
	first := NewTrackingNumber()
	second := NewTrackingNumber()

	assert.True(t, strings.HasPrefix(first, "WF"))
	assert.Len(t, first, 14)
	assert.NotEqual(t, first, second)
	assert.Equal(t, strings.ToUpper(first), first)
}

func TestTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("found in store", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		service := newTestPackagesService(mockRepo, nil)

		result := &types.TrackingResult{
			Package: types.Package{TrackingNumber: "WF001122334455", Status: types.PackageStatusInTransit},
		}
		mockRepo.On("GetByTrackingNumber", mock.Anything, "WF001122334455").Return(result, nil).Once()

		got, err := service.Track(ctx, "WF001122334455")

		require.NoError(t, err)
		assert.Equal(t, types.PackageStatusInTransit, got.Package.Status)
	})

	t.Run("unknown number is ErrNotFound", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		service := newTestPackagesService(mockRepo, nil)

		mockRepo.On("GetByTrackingNumber", mock.Anything, "WFDEADBEEF0000").Return(nil, types.ErrNotFound).Once()

		_, err := service.Track(ctx, "WFDEADBEEF0000")

		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestCreatePackage(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects missing fields", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		service := newTestPackagesService(mockRepo, nil)

		_, err := service.Create(ctx, types.CreatePackageParams{SenderName: "Acme"})

		assert.ErrorIs(t, err, types.ErrBadRequest)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("retries once on tracking number collision", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		service := newTestPackagesService(mockRepo, nil)

		params := types.CreatePackageParams{
			SenderName:    "Acme",
			RecipientName: "Jordan",
			Origin:        "Lisbon",
			Destination:   "Porto",
		}
		created := &types.Package{ID: uuid.New(), TrackingNumber: "WFAAAA00000000", Status: types.PackageStatusPending}
		mockRepo.On("Create", mock.Anything, mock.Anything, params).Return(nil, types.ErrConflict).Once()
		mockRepo.On("Create", mock.Anything, mock.Anything, params).Return(created, nil).Once()

		pkg, err := service.Create(ctx, params)

		require.NoError(t, err)
		assert.Equal(t, created.ID, pkg.ID)
		mockRepo.AssertNumberOfCalls(t, "Create", 2)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies the recipient", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		mockNotifier := new(MockNotifier)
		service := newTestPackagesService(mockRepo, mockNotifier)

		recipientID := uuid.New()
		pkgID := uuid.New()
		params := types.UpdatePackageStatusParams{Status: types.PackageStatusDelivered}
		updated := &types.Package{
			ID:              pkgID,
			TrackingNumber:  "WFBBBB00000000",
			RecipientUserID: &recipientID,
			Status:          types.PackageStatusDelivered,
		}
		mockRepo.On("UpdateStatus", mock.Anything, pkgID, params).Return(updated, nil).Once()
		mockNotifier.On("NotifyStatusChange", mock.Anything, recipientID, pkgID, "WFBBBB00000000", types.PackageStatusDelivered).Return(nil).Once()

		pkg, err := service.UpdateStatus(ctx, pkgID, params)

		require.NoError(t, err)
		assert.Equal(t, types.PackageStatusDelivered, pkg.Status)
		mockNotifier.AssertExpectations(t)
	})

	t.Run("no notification without a linked recipient", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		mockNotifier := new(MockNotifier)
		service := newTestPackagesService(mockRepo, mockNotifier)

		pkgID := uuid.New()
		params := types.UpdatePackageStatusParams{Status: types.PackageStatusInTransit}
		updated := &types.Package{ID: pkgID, TrackingNumber: "WFCCCC00000000", Status: types.PackageStatusInTransit}
		mockRepo.On("UpdateStatus", mock.Anything, pkgID, params).Return(updated, nil).Once()

		_, err := service.UpdateStatus(ctx, pkgID, params)

		require.NoError(t, err)
		mockNotifier.AssertNotCalled(t, "NotifyStatusChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects an invalid status", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		service := newTestPackagesService(mockRepo, nil)

		_, err := service.UpdateStatus(ctx, uuid.New(), types.UpdatePackageStatusParams{Status: "teleported"})

		assert.ErrorIs(t, err, types.ErrBadRequest)
		mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("notification failure does not fail the update", func(t *testing.T) {
		mockRepo := new(MockPackagesRepo)
		mockNotifier := new(MockNotifier)
		service := newTestPackagesService(mockRepo, mockNotifier)

		recipientID := uuid.New()
		pkgID := uuid.New()
		params := types.UpdatePackageStatusParams{Status: types.PackageStatusFailed}
		updated := &types.Package{
			ID:              pkgID,
			TrackingNumber:  "WFDDDD00000000",
			RecipientUserID: &recipientID,
			Status:          types.PackageStatusFailed,
		}
		mockRepo.On("UpdateStatus", mock.Anything, pkgID, params).Return(updated, nil).Once()
		mockNotifier.On("NotifyStatusChange", mock.Anything, recipientID, pkgID, "WFDDDD00000000", types.PackageStatusFailed).
			Return(assert.AnError).Once()

		_, err := service.UpdateStatus(ctx, pkgID, params)

		assert.NoError(t, err)
	})
}

func TestListClampsPagination(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPackagesRepo)
	service := newTestPackagesService(mockRepo, nil)

	mockRepo.On("List", mock.Anything, 50, 0).Return([]types.Package{}, nil).Once()

	_, err := service.List(ctx, -5, -10)

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
