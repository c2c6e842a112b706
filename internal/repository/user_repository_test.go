package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/credential-service/internal/domain"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

var userRowColumns = []string{
	"email", "user_id", "password_hash", "name",
	"created_at", "updated_at", "login_attempts", "locked_until",
}

func newTestUser() *domain.User {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	name := "Alice"
	return &domain.User{
		Email:        "a@b.com",
		ID:           "0f8fad5b-d9cb-469f-a165-70867728950e",
		PasswordHash: "$2a$10$hash",
		Name:         &name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPostgresUserRepository_CreateIfAbsent(t *testing.T) {
	const insertQuery = `INSERT INTO users \(email, user_id, password_hash, name, created_at, updated_at, login_attempts, locked_until\)`

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface, user *domain.User)
		wantCode  string
	}{
		{
			name: "inserts new user",
			setupMock: func(mock pgxmock.PgxPoolIface, user *domain.User) {
				mock.ExpectExec(insertQuery).
					WithArgs(user.Email, user.ID, user.PasswordHash, user.Name, pgxmock.AnyArg(), pgxmock.AnyArg(), 0, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "conflict leaves no rows affected",
			setupMock: func(mock pgxmock.PgxPoolIface, user *domain.User) {
				mock.ExpectExec(insertQuery).
					WithArgs(user.Email, user.ID, user.PasswordHash, user.Name, pgxmock.AnyArg(), pgxmock.AnyArg(), 0, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
			},
			wantCode: apperrors.CodeAlreadyExists,
		},
		{
			name: "unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface, _ *domain.User) {
				mock.ExpectExec(insertQuery).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantCode: apperrors.CodeAlreadyExists,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface, _ *domain.User) {
				mock.ExpectExec(insertQuery).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: apperrors.CodeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			user := newTestUser()
			tt.setupMock(mock, user)

			err = NewUserRepository(mock).CreateIfAbsent(context.Background(), user)
			if tt.wantCode == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresUserRepository_GetByEmail(t *testing.T) {
	const selectQuery = `SELECT email, user_id, password_hash, name, created_at, updated_at, login_attempts, locked_until\s+FROM users WHERE email=\$1`

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		user := newTestUser()
		lockedUntil := user.CreatedAt.Add(15 * time.Minute)
		mock.ExpectQuery(selectQuery).
			WithArgs("a@b.com").
			WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(
				user.Email, user.ID, user.PasswordHash, user.Name,
				user.CreatedAt, user.UpdatedAt, 5, &lockedUntil,
			))

		got, err := NewUserRepository(mock).GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "Alice", *got.Name)
		assert.Equal(t, 5, got.LoginAttempts)
		require.NotNil(t, got.LockedUntil)
		assert.True(t, lockedUntil.Equal(*got.LockedUntil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(selectQuery).WithArgs("ghost@b.com").WillReturnError(pgx.ErrNoRows)

		_, err = NewUserRepository(mock).GetByEmail(context.Background(), "ghost@b.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(selectQuery).WithArgs("a@b.com").WillReturnError(errors.New("db down"))

		_, err = NewUserRepository(mock).GetByEmail(context.Background(), "a@b.com")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreUnavailable))
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestPostgresUserRepository_UpdateLoginState(t *testing.T) {
	const updateQuery = `UPDATE users SET login_attempts=\$2, locked_until=\$3, updated_at=NOW\(\)\s+WHERE email=\$1`

	t.Run("updates counters", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		lockedUntil := time.Now().Add(15 * time.Minute)
		mock.ExpectExec(updateQuery).
			WithArgs("a@b.com", 5, &lockedUntil).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = NewUserRepository(mock).UpdateLoginState(context.Background(), "a@b.com", 5, &lockedUntil)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(updateQuery).
			WithArgs("ghost@b.com", 0, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = NewUserRepository(mock).UpdateLoginState(context.Background(), "ghost@b.com", 0, nil)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
