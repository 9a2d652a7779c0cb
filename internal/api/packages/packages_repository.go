package packages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var _ PackagesRepo = (*PostgresPackagesRepo)(nil)

// PackagesRepo defines the contract for package persistence.
type PackagesRepo interface {
	Create(ctx context.Context, trackingNumber string, params types.CreatePackageParams) (*types.Package, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*types.TrackingResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Package, error)
	ListByRecipient(ctx context.Context, userID uuid.UUID) ([]types.Package, error)
	List(ctx context.Context, limit, offset int) ([]types.Package, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, params types.UpdatePackageStatusParams) (*types.Package, error)
	AssignRoute(ctx context.Context, id uuid.UUID, routeID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostgresPackagesRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresPackagesRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresPackagesRepo {
	return &PostgresPackagesRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const packageColumns = `id, tracking_number, sender_name, recipient_name, recipient_user_id,
	origin, destination, status, current_location, route_id, estimated_delivery,
	created_at, updated_at`

func scanPackage(row pgx.Row) (*types.Package, error) {
	var p types.Package
	err := row.Scan(
		&p.ID, &p.TrackingNumber, &p.SenderName, &p.RecipientName, &p.RecipientUserID,
		&p.Origin, &p.Destination, &p.Status, &p.CurrentLocation, &p.RouteID,
		&p.EstimatedDelivery, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPackagesRepo) Create(ctx context.Context, trackingNumber string, params types.CreatePackageParams) (*types.Package, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO packages (tracking_number, sender_name, recipient_name, recipient_user_id,
			origin, destination, route_id, estimated_delivery)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + packageColumns

	pkg, err := scanPackage(tx.QueryRow(ctx, query,
		trackingNumber, params.SenderName, params.RecipientName, params.RecipientUserID,
		params.Origin, params.Destination, params.RouteID, params.EstimatedDelivery))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("tracking number %s already exists: %w", trackingNumber, types.ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert package: %w", err)
	}

	// Initial event so the history is never empty.
	_, err = tx.Exec(ctx,
		"INSERT INTO tracking_events (package_id, status, location) VALUES ($1, $2, $3)",
		pkg.ID, pkg.Status, pkg.Origin)
	if err != nil {
		return nil, fmt.Errorf("failed to insert initial tracking event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit package creation: %w", err)
	}
	return pkg, nil
}

func (r *PostgresPackagesRepo) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*types.TrackingResult, error) {
	query := "SELECT " + packageColumns + " FROM packages WHERE tracking_number = $1"
	pkg, err := scanPackage(r.pgpool.QueryRow(ctx, query, trackingNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch package by tracking number: %w", err)
	}

	events, err := r.listEvents(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}
	return &types.TrackingResult{Package: *pkg, Events: events}, nil
}

func (r *PostgresPackagesRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Package, error) {
	query := "SELECT " + packageColumns + " FROM packages WHERE id = $1"
	pkg, err := scanPackage(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch package: %w", err)
	}
	return pkg, nil
}

func (r *PostgresPackagesRepo) ListByRecipient(ctx context.Context, userID uuid.UUID) ([]types.Package, error) {
	query := "SELECT " + packageColumns + ` FROM packages
		WHERE recipient_user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages by recipient: %w", err)
	}
	defer rows.Close()
	return collectPackages(rows)
}

func (r *PostgresPackagesRepo) List(ctx context.Context, limit, offset int) ([]types.Package, error) {
	query := "SELECT " + packageColumns + ` FROM packages
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pgpool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()
	return collectPackages(rows)
}

func collectPackages(rows pgx.Rows) ([]types.Package, error) {
	var packages []types.Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, *pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("package rows iteration failed: %w", err)
	}
	return packages, nil
}

// UpdateStatus transitions the package and appends the matching tracking
// event in one transaction so history and state never diverge.
func (r *PostgresPackagesRepo) UpdateStatus(ctx context.Context, id uuid.UUID, params types.UpdatePackageStatusParams) (*types.Package, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE packages
		SET status = $1, current_location = COALESCE($2, current_location), updated_at = now()
		WHERE id = $3
		RETURNING ` + packageColumns

	pkg, err := scanPackage(tx.QueryRow(ctx, query, params.Status, params.Location, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update package status: %w", err)
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO tracking_events (package_id, status, location, note) VALUES ($1, $2, $3, $4)",
		id, params.Status, params.Location, params.Note)
	if err != nil {
		return nil, fmt.Errorf("failed to insert tracking event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	return pkg, nil
}

func (r *PostgresPackagesRepo) AssignRoute(ctx context.Context, id uuid.UUID, routeID *uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE packages SET route_id = $1, updated_at = now() WHERE id = $2",
		routeID, id)
	if err != nil {
		return fmt.Errorf("failed to assign route: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresPackagesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, "DELETE FROM packages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresPackagesRepo) listEvents(ctx context.Context, packageID uuid.UUID) ([]types.TrackingEvent, error) {
	rows, err := r.pgpool.Query(ctx, `
		SELECT id, package_id, status, location, note, created_at
		FROM tracking_events WHERE package_id = $1 ORDER BY created_at DESC`,
		packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking events: %w", err)
	}
	defer rows.Close()

	var events []types.TrackingEvent
	for rows.Next() {
		var e types.TrackingEvent
		if err := rows.Scan(&e.ID, &e.PackageID, &e.Status, &e.Location, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracking event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracking event rows iteration failed: %w", err)
	}
	return events, nil
}
