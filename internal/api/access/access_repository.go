package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

// PGXPool is the subset of pgxpool.Pool the repository needs. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type PGXPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ AccessRepo = (*PostgresAccessRepo)(nil)

// AccessRepo is the privileged profile store. Every query runs as a
// BYPASSRLS database role: the profiles policies reference role, which is
// exactly what this repository exists to read, so evaluating them here
// would recurse.
type AccessRepo interface {
	// GetProfileByID returns the profile for a principal id.
	// Returns types.ErrNotFound if absent.
	GetProfileByID(ctx context.Context, principalID string) (*types.Profile, error)

	// GetProfileByEmail returns a profile matched by contact address. Exists
	// only to reconcile legacy rows created before id linkage was enforced.
	GetProfileByEmail(ctx context.Context, email string) (*types.Profile, error)

	// InsertBaselineProfile creates the default role="user" row for a
	// principal. Returns types.ErrConflict on a uniqueness violation
	// (concurrent first login).
	InsertBaselineProfile(ctx context.Context, principalID string, email, displayName *string) error

	// UpdateRole sets the role for a principal id.
	// Returns types.ErrNotFound if no profile row exists.
	UpdateRole(ctx context.Context, principalID string, role types.Role) error

	// UpdateDisplayName is the only profile self-edit.
	UpdateDisplayName(ctx context.Context, principalID string, displayName string) error

	// ListProfiles returns all profiles, newest first (admin back office).
	ListProfiles(ctx context.Context) ([]types.Profile, error)

	// DeleteProfile removes a profile as part of the admin user-removal flow.
	DeleteProfile(ctx context.Context, principalID string) error
}

type PostgresAccessRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

// NewPostgresAccessRepo wraps the privileged pool. The pool is stateless
// and safe to share process-wide; it is injected rather than held as a
// package-level singleton so the resolver stays testable.
func NewPostgresAccessRepo(pgpool PGXPool, logger *slog.Logger) *PostgresAccessRepo {
	return &PostgresAccessRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const profileColumns = "id, email, display_name, COALESCE(role, 'user'), created_at, updated_at"

func scanProfile(row pgx.Row) (*types.Profile, error) {
	var p types.Profile
	err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresAccessRepo) GetProfileByID(ctx context.Context, principalID string) (*types.Profile, error) {
	row := r.pgpool.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = $1", principalID)
	return scanProfile(row)
}

func (r *PostgresAccessRepo) GetProfileByEmail(ctx context.Context, email string) (*types.Profile, error) {
	// Legacy rows may share an email with no id linkage; take the oldest.
	row := r.pgpool.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE email = $1 ORDER BY created_at ASC LIMIT 1", email)
	return scanProfile(row)
}

func (r *PostgresAccessRepo) InsertBaselineProfile(ctx context.Context, principalID string, email, displayName *string) error {
	ctx, span := otel.Tracer("AccessRepo").Start(ctx, "InsertBaselineProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "profiles"),
		attribute.String("principal.id", principalID),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx,
		"INSERT INTO profiles (id, email, display_name, role) VALUES ($1, $2, $3, 'user')",
		principalID, email, displayName)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Ok, "Lost first-login race")
			return types.ErrConflict
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return fmt.Errorf("failed to insert baseline profile: %w", err)
	}

	span.SetStatus(codes.Ok, "Baseline profile created")
	return nil
}

func (r *PostgresAccessRepo) UpdateRole(ctx context.Context, principalID string, role types.Role) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE profiles SET role = $1, updated_at = $2 WHERE id = $3",
		role, time.Now(), principalID)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAccessRepo) UpdateDisplayName(ctx context.Context, principalID string, displayName string) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE profiles SET display_name = $1, updated_at = $2 WHERE id = $3",
		displayName, time.Now(), principalID)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAccessRepo) ListProfiles(ctx context.Context) ([]types.Profile, error) {
	rows, err := r.pgpool.Query(ctx,
		"SELECT "+profileColumns+" FROM profiles ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []types.Profile
	for rows.Next() {
		var p types.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile rows iteration failed: %w", err)
	}
	return profiles, nil
}

func (r *PostgresAccessRepo) DeleteProfile(ctx context.Context, principalID string) error {
	tag, err := r.pgpool.Exec(ctx, "DELETE FROM profiles WHERE id = $1", principalID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
