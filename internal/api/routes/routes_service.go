package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var _ RoutesService = (*RoutesServiceImpl)(nil)

type RoutesService interface {
	Create(ctx context.Context, params types.CreateRouteParams) (*types.DeliveryRoute, error)
	Get(ctx context.Context, id uuid.UUID) (*types.DeliveryRoute, error)
	List(ctx context.Context, activeOnly bool) ([]types.DeliveryRoute, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateRouteParams) (*types.DeliveryRoute, error)
	ReplaceWaypoints(ctx context.Context, routeID uuid.UUID, locations []string) ([]types.Waypoint, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type RoutesServiceImpl struct {
	logger *slog.Logger
	repo   RoutesRepo
}

func NewRoutesService(repo RoutesRepo, logger *slog.Logger) *RoutesServiceImpl {
	return &RoutesServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *RoutesServiceImpl) Create(ctx context.Context, params types.CreateRouteParams) (*types.DeliveryRoute, error) {
	if params.Name == "" || params.Origin == "" || params.Destination == "" {
		return nil, fmt.Errorf("%w: name, origin and destination are required", types.ErrBadRequest)
	}
	for _, location := range params.Waypoints {
		if location == "" {
			return nil, fmt.Errorf("%w: waypoint locations must be non-empty", types.ErrBadRequest)
		}
	}

	route, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Delivery route created",
		slog.String("routeID", route.ID.String()),
		slog.String("name", route.Name))
	return route, nil
}

func (s *RoutesServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.DeliveryRoute, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *RoutesServiceImpl) List(ctx context.Context, activeOnly bool) ([]types.DeliveryRoute, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *RoutesServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateRouteParams) (*types.DeliveryRoute, error) {
	return s.repo.Update(ctx, id, params)
}

func (s *RoutesServiceImpl) ReplaceWaypoints(ctx context.Context, routeID uuid.UUID, locations []string) ([]types.Waypoint, error) {
	for _, location := range locations {
		if location == "" {
			return nil, fmt.Errorf("%w: waypoint locations must be non-empty", types.ErrBadRequest)
		}
	}
	return s.repo.ReplaceWaypoints(ctx, routeID, locations)
}

func (s *RoutesServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Delivery route deleted", slog.String("routeID", id.String()))
	return nil
}
