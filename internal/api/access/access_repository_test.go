package access

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

func newMockRepo(t *testing.T) (*PostgresAccessRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresAccessRepo(mockPool, slog.Default()), mockPool
}

func profileRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "email", "display_name", "role", "created_at", "updated_at"})
}

func TestGetProfileByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns profile", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		email := "a@example.com"
		now := time.Now()

		mockPool.ExpectQuery("SELECT (.+) FROM profiles WHERE id").
			WithArgs("p-1").
			WillReturnRows(profileRows().AddRow("p-1", &email, (*string)(nil), types.RoleAdmin, now, now))

		profile, err := repo.GetProfileByID(ctx, "p-1")

		require.NoError(t, err)
		assert.Equal(t, "p-1", profile.ID)
		assert.Equal(t, types.RoleAdmin, profile.Role)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("maps no rows to ErrNotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectQuery("SELECT (.+) FROM profiles WHERE id").
			WithArgs("missing").
			WillReturnRows(profileRows())

		_, err := repo.GetProfileByID(ctx, "missing")

		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestGetProfileByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("takes the oldest matching row", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		email := "legacy@example.com"
		now := time.Now()

		mockPool.ExpectQuery("SELECT (.+) FROM profiles WHERE email = (.+) ORDER BY created_at ASC LIMIT 1").
			WithArgs(email).
			WillReturnRows(profileRows().AddRow("old-id", &email, (*string)(nil), types.RoleUser, now, now))

		profile, err := repo.GetProfileByEmail(ctx, email)

		require.NoError(t, err)
		assert.Equal(t, "old-id", profile.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestInsertBaselineProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts with role user", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		email := "n@example.com"

		mockPool.ExpectExec("INSERT INTO profiles").
			WithArgs("p-2", &email, (*string)(nil)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.InsertBaselineProfile(ctx, "p-2", &email, nil)

		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("maps unique violation to ErrConflict", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec("INSERT INTO profiles").
			WithArgs("p-3", (*string)(nil), (*string)(nil)).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.InsertBaselineProfile(ctx, "p-3", nil, nil)

		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("wraps other database errors", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec("INSERT INTO profiles").
			WithArgs("p-4", (*string)(nil), (*string)(nil)).
			WillReturnError(&pgconn.PgError{Code: "53300"})

		err := repo.InsertBaselineProfile(ctx, "p-4", nil, nil)

		require.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrConflict)
	})
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()

	t.Run("updates existing profile", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec("UPDATE profiles SET role").
			WithArgs(types.RoleAdmin, pgxmock.AnyArg(), "p-5").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateRole(ctx, "p-5", types.RoleAdmin)

		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("maps zero rows to ErrNotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec("UPDATE profiles SET role").
			WithArgs(types.RoleAdmin, pgxmock.AnyArg(), "ghost").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateRole(ctx, "ghost", types.RoleAdmin)

		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestDeleteProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("maps zero rows to ErrNotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec("DELETE FROM profiles").
			WithArgs("ghost").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.DeleteProfile(ctx, "ghost")

		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}
