package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo defines the contract for identity-provider persistence.
type AuthRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error)
	GetUserByID(ctx context.Context, userID string) (*types.UserAuth, error)
	GetUserByProvider(ctx context.Context, provider, providerUserID string) (*types.UserAuth, error)

	// Register creates a password-based user and returns its id.
	Register(ctx context.Context, username, email, hashedPassword string) (string, error)
	// CreateProviderUser creates a user originating from an OAuth provider
	// (no password hash) and returns its id.
	CreateProviderUser(ctx context.Context, username, email, provider, providerUserID string) (string, error)
	// LinkProvider attaches provider identifiers to an existing user, used
	// when an OAuth sign-in matches a pre-existing email account.
	LinkProvider(ctx context.Context, userID, provider, providerUserID string) error

	UpdatePassword(ctx context.Context, userID, newHashedPassword string) error

	StoreRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	ValidateRefreshTokenAndGetUserID(ctx context.Context, refreshToken string) (string, error)
	InvalidateRefreshToken(ctx context.Context, refreshToken string) error
	InvalidateAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteUser removes the identity record. Profile cleanup is the
	// caller's responsibility (admin user-removal flow).
	DeleteUser(ctx context.Context, userID string) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresAuthRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, COALESCE(username, ''), email, COALESCE(password_hash, ''),
       COALESCE(provider, ''), COALESCE(provider_user_id, ''), created_at, updated_at`

func scanUser(row pgx.Row) (*types.UserAuth, error) {
	var user types.UserAuth
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password,
		&user.Provider, &user.ProviderUserID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	row := r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID string) (*types.UserAuth, error) {
	row := r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", userID)
	return scanUser(row)
}

func (r *PostgresAuthRepo) GetUserByProvider(ctx context.Context, provider, providerUserID string) (*types.UserAuth, error) {
	row := r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE provider = $1 AND provider_user_id = $2",
		provider, providerUserID)
	return scanUser(row)
}

func (r *PostgresAuthRepo) Register(ctx context.Context, username, email, hashedPassword string) (string, error) {
	var userID string
	err := r.pgpool.QueryRow(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id",
		username, email, hashedPassword).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", types.ErrConflict
		}
		return "", fmt.Errorf("failed to insert user: %w", err)
	}
	return userID, nil
}

func (r *PostgresAuthRepo) CreateProviderUser(ctx context.Context, username, email, provider, providerUserID string) (string, error) {
	var userID string
	err := r.pgpool.QueryRow(ctx,
		"INSERT INTO users (username, email, provider, provider_user_id) VALUES ($1, $2, $3, $4) RETURNING id",
		username, email, provider, providerUserID).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", types.ErrConflict
		}
		return "", fmt.Errorf("failed to insert provider user: %w", err)
	}
	return userID, nil
}

func (r *PostgresAuthRepo) LinkProvider(ctx context.Context, userID, provider, providerUserID string) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE users SET provider = $1, provider_user_id = $2, updated_at = $3 WHERE id = $4",
		provider, providerUserID, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to link provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) UpdatePassword(ctx context.Context, userID, newHashedPassword string) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3",
		newHashedPassword, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) StoreRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.pgpool.Exec(ctx,
		"INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)",
		userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) ValidateRefreshTokenAndGetUserID(ctx context.Context, refreshToken string) (string, error) {
	var userID string
	var expiresAt time.Time
	var revokedAt *time.Time
	err := r.pgpool.QueryRow(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token = $1",
		refreshToken).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", types.ErrUnauthenticated
		}
		return "", fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if time.Now().After(expiresAt) || revokedAt != nil {
		return "", types.ErrUnauthenticated
	}
	return userID, nil
}

func (r *PostgresAuthRepo) InvalidateRefreshToken(ctx context.Context, refreshToken string) error {
	_, err := r.pgpool.Exec(ctx,
		"UPDATE refresh_tokens SET revoked_at = $1 WHERE token = $2 AND revoked_at IS NULL",
		time.Now(), refreshToken)
	if err != nil {
		return fmt.Errorf("failed to invalidate refresh token: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) InvalidateAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.pgpool.Exec(ctx,
		"UPDATE refresh_tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL",
		time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to invalidate refresh tokens: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) DeleteUser(ctx context.Context, userID string) error {
	tag, err := r.pgpool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
