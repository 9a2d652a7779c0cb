package packages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Fonality-code/wayfinder-life-sub000/app/observability/metrics"
	"github.com/Fonality-code/wayfinder-life-sub000/config"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/cache"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var _ PackagesService = (*PackagesServiceImpl)(nil)

// Notifier decouples package status changes from notification delivery.
// Implemented by the notifications service.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, userID, packageID uuid.UUID, trackingNumber string, status types.PackageStatus) error
}

type PackagesService interface {
	// Track is the public lookup path. It serves from Redis when possible
	// and negatively caches unknown tracking numbers.
	Track(ctx context.Context, trackingNumber string) (*types.TrackingResult, error)

	Create(ctx context.Context, params types.CreatePackageParams) (*types.Package, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Package, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]types.Package, error)
	List(ctx context.Context, limit, offset int) ([]types.Package, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, params types.UpdatePackageStatusParams) (*types.Package, error)
	AssignRoute(ctx context.Context, id uuid.UUID, routeID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PackagesServiceImpl struct {
	logger   *slog.Logger
	repo     PackagesRepo
	cache    *cache.Cache
	notifier Notifier
	cfg      config.TrackConfig
}

func NewPackagesService(repo PackagesRepo, c *cache.Cache, notifier Notifier, cfg config.TrackConfig, logger *slog.Logger) *PackagesServiceImpl {
	return &PackagesServiceImpl{
		logger:   logger,
		repo:     repo,
		cache:    c,
		notifier: notifier,
		cfg:      cfg,
	}
}

// NewTrackingNumber derives a short uppercase tracking number from a fresh
// UUID, e.g. WF3F2A9C1B8D4E.
func NewTrackingNumber() string {
	id := uuid.New()
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return "WF" + hex[:12]
}

func (s *PackagesServiceImpl) Track(ctx context.Context, trackingNumber string) (*types.TrackingResult, error) {
	l := s.logger.With(slog.String("method", "Track"), slog.String("trackingNumber", trackingNumber))

	if s.cache != nil {
		if result, err := s.cache.GetTracking(ctx, trackingNumber); err == nil {
			s.countLookup(ctx, "cache_hit")
			return result, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			l.WarnContext(ctx, "Tracking cache read failed", slog.Any("error", err))
		}

		if neg, err := s.cache.IsNegativelyCached(ctx, trackingNumber); err == nil && neg {
			s.countLookup(ctx, "negative_hit")
			return nil, types.ErrNotFound
		}
	}

	result, err := s.repo.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			s.countLookup(ctx, "not_found")
			if s.cache != nil {
				if cerr := s.cache.SetNegativeCache(ctx, trackingNumber); cerr != nil {
					l.WarnContext(ctx, "Failed to set negative cache", slog.Any("error", cerr))
				}
			}
			return nil, types.ErrNotFound
		}
		s.countLookup(ctx, "error")
		return nil, fmt.Errorf("tracking lookup failed: %w", err)
	}

	s.countLookup(ctx, "db_hit")
	if s.cache != nil {
		if cerr := s.cache.SetTracking(ctx, trackingNumber, result, s.cfg.CacheTTL); cerr != nil {
			l.WarnContext(ctx, "Failed to cache tracking result", slog.Any("error", cerr))
		}
	}
	return result, nil
}

func (s *PackagesServiceImpl) Create(ctx context.Context, params types.CreatePackageParams) (*types.Package, error) {
	l := s.logger.With(slog.String("method", "Create"))

	if params.SenderName == "" || params.RecipientName == "" || params.Origin == "" || params.Destination == "" {
		return nil, fmt.Errorf("%w: sender_name, recipient_name, origin and destination are required", types.ErrBadRequest)
	}

	// Retry once on the vanishingly unlikely tracking number collision.
	for attempt := 0; attempt < 2; attempt++ {
		pkg, err := s.repo.Create(ctx, NewTrackingNumber(), params)
		if err != nil {
			if errors.Is(err, types.ErrConflict) && attempt == 0 {
				continue
			}
			return nil, err
		}
		l.InfoContext(ctx, "Package created",
			slog.String("packageID", pkg.ID.String()),
			slog.String("trackingNumber", pkg.TrackingNumber))
		return pkg, nil
	}
	return nil, types.ErrConflict
}

func (s *PackagesServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*types.Package, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PackagesServiceImpl) ListMine(ctx context.Context, userID uuid.UUID) ([]types.Package, error) {
	return s.repo.ListByRecipient(ctx, userID)
}

func (s *PackagesServiceImpl) List(ctx context.Context, limit, offset int) ([]types.Package, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *PackagesServiceImpl) UpdateStatus(ctx context.Context, id uuid.UUID, params types.UpdatePackageStatusParams) (*types.Package, error) {
	l := s.logger.With(slog.String("method", "UpdateStatus"), slog.String("packageID", id.String()))

	if !params.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", types.ErrBadRequest, params.Status)
	}

	pkg, err := s.repo.UpdateStatus(ctx, id, params)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cerr := s.cache.InvalidateTracking(ctx, pkg.TrackingNumber); cerr != nil {
			l.WarnContext(ctx, "Failed to invalidate tracking cache", slog.Any("error", cerr))
		}
	}

	// Notification failures must not fail the status update itself.
	if s.notifier != nil && pkg.RecipientUserID != nil {
		if nerr := s.notifier.NotifyStatusChange(ctx, *pkg.RecipientUserID, pkg.ID, pkg.TrackingNumber, pkg.Status); nerr != nil {
			l.WarnContext(ctx, "Failed to notify recipient", slog.Any("error", nerr))
		}
	}

	l.InfoContext(ctx, "Package status updated", slog.String("status", string(pkg.Status)))
	return pkg, nil
}

func (s *PackagesServiceImpl) AssignRoute(ctx context.Context, id uuid.UUID, routeID *uuid.UUID) error {
	return s.repo.AssignRoute(ctx, id, routeID)
}

func (s *PackagesServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	l := s.logger.With(slog.String("method", "Delete"), slog.String("packageID", id.String()))

	pkg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		if cerr := s.cache.InvalidateTracking(ctx, pkg.TrackingNumber); cerr != nil {
			l.WarnContext(ctx, "Failed to invalidate tracking cache", slog.Any("error", cerr))
		}
	}
	l.InfoContext(ctx, "Package deleted", slog.String("trackingNumber", pkg.TrackingNumber))
	return nil
}

func (s *PackagesServiceImpl) countLookup(ctx context.Context, outcome string) {
	metrics.Get().TrackingLookupsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
