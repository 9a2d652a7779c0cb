package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var _ RoutesRepo = (*PostgresRoutesRepo)(nil)

// RoutesRepo defines the contract for delivery route persistence.
type RoutesRepo interface {
	Create(ctx context.Context, params types.CreateRouteParams) (*types.DeliveryRoute, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.DeliveryRoute, error)
	List(ctx context.Context, activeOnly bool) ([]types.DeliveryRoute, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateRouteParams) (*types.DeliveryRoute, error)
	ReplaceWaypoints(ctx context.Context, routeID uuid.UUID, locations []string) ([]types.Waypoint, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostgresRoutesRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresRoutesRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresRoutesRepo {
	return &PostgresRoutesRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const routeColumns = "id, name, origin, destination, active, created_at, updated_at"

func scanRoute(row pgx.Row) (*types.DeliveryRoute, error) {
	var rt types.DeliveryRoute
	err := row.Scan(&rt.ID, &rt.Name, &rt.Origin, &rt.Destination, &rt.Active, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *PostgresRoutesRepo) Create(ctx context.Context, params types.CreateRouteParams) (*types.DeliveryRoute, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO delivery_routes (name, origin, destination)
		VALUES ($1, $2, $3)
		RETURNING ` + routeColumns

	route, err := scanRoute(tx.QueryRow(ctx, query, params.Name, params.Origin, params.Destination))
	if err != nil {
		return nil, fmt.Errorf("failed to insert delivery route: %w", err)
	}

	route.Waypoints, err = insertWaypoints(ctx, tx, route.ID, params.Waypoints)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit route creation: %w", err)
	}
	return route, nil
}

func insertWaypoints(ctx context.Context, tx pgx.Tx, routeID uuid.UUID, locations []string) ([]types.Waypoint, error) {
	waypoints := make([]types.Waypoint, 0, len(locations))
	for i, location := range locations {
		var wp types.Waypoint
		err := tx.QueryRow(ctx, `
			INSERT INTO route_waypoints (route_id, position, location)
			VALUES ($1, $2, $3)
			RETURNING id, route_id, position, location`,
			routeID, i+1, location).Scan(&wp.ID, &wp.RouteID, &wp.Position, &wp.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to insert waypoint %d: %w", i+1, err)
		}
		waypoints = append(waypoints, wp)
	}
	return waypoints, nil
}

func (r *PostgresRoutesRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.DeliveryRoute, error) {
	query := "SELECT " + routeColumns + " FROM delivery_routes WHERE id = $1"
	route, err := scanRoute(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch delivery route: %w", err)
	}

	route.Waypoints, err = r.listWaypoints(ctx, id)
	if err != nil {
		return nil, err
	}
	return route, nil
}

func (r *PostgresRoutesRepo) List(ctx context.Context, activeOnly bool) ([]types.DeliveryRoute, error) {
	query := "SELECT " + routeColumns + " FROM delivery_routes"
	if activeOnly {
		query += " WHERE active"
	}
	query += " ORDER BY name"

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery routes: %w", err)
	}
	defer rows.Close()

	var routes []types.DeliveryRoute
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery route: %w", err)
		}
		routes = append(routes, *route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("route rows iteration failed: %w", err)
	}
	return routes, nil
}

func (r *PostgresRoutesRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateRouteParams) (*types.DeliveryRoute, error) {
	query := `
		UPDATE delivery_routes
		SET name        = COALESCE($1, name),
		    origin      = COALESCE($2, origin),
		    destination = COALESCE($3, destination),
		    active      = COALESCE($4, active),
		    updated_at  = now()
		WHERE id = $5
		RETURNING ` + routeColumns

	route, err := scanRoute(r.pgpool.QueryRow(ctx, query,
		params.Name, params.Origin, params.Destination, params.Active, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update delivery route: %w", err)
	}

	route.Waypoints, err = r.listWaypoints(ctx, id)
	if err != nil {
		return nil, err
	}
	return route, nil
}

// ReplaceWaypoints swaps the route's waypoint list atomically.
func (r *PostgresRoutesRepo) ReplaceWaypoints(ctx context.Context, routeID uuid.UUID, locations []string) ([]types.Waypoint, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM delivery_routes WHERE id = $1)", routeID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check route existence: %w", err)
	}
	if !exists {
		return nil, types.ErrNotFound
	}

	if _, err := tx.Exec(ctx, "DELETE FROM route_waypoints WHERE route_id = $1", routeID); err != nil {
		return nil, fmt.Errorf("failed to clear waypoints: %w", err)
	}

	waypoints, err := insertWaypoints(ctx, tx, routeID, locations)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit waypoint replacement: %w", err)
	}
	return waypoints, nil
}

func (r *PostgresRoutesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, "DELETE FROM delivery_routes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete delivery route: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresRoutesRepo) listWaypoints(ctx context.Context, routeID uuid.UUID) ([]types.Waypoint, error) {
	rows, err := r.pgpool.Query(ctx,
		"SELECT id, route_id, position, location FROM route_waypoints WHERE route_id = $1 ORDER BY position",
		routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waypoints: %w", err)
	}
	defer rows.Close()

	var waypoints []types.Waypoint
	for rows.Next() {
		var wp types.Waypoint
		if err := rows.Scan(&wp.ID, &wp.RouteID, &wp.Position, &wp.Location); err != nil {
			return nil, fmt.Errorf("failed to scan waypoint: %w", err)
		}
		waypoints = append(waypoints, wp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("waypoint rows iteration failed: %w", err)
	}
	return waypoints, nil
}
