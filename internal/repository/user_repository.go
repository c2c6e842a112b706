package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/credential-service/internal/domain"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// ErrUserNotFound is returned when no record exists for the requested key.
var ErrUserNotFound = errors.New("user not found")

// UserRepository is the credential store. Implementations must make CreateIfAbsent atomic:
// of several concurrent creates for one email exactly one succeeds and the rest fail with
// ALREADY_EXISTS. UpdateLoginState is a plain last-writer-wins write and also refreshes
// updatedAt. Infrastructure failures are reported as STORE_UNAVAILABLE.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	CreateIfAbsent(ctx context.Context, user *domain.User) error
	UpdateLoginState(ctx context.Context, email string, attempts int, lockedUntil *time.Time) error
}

// ErrUserExists builds the conflict error returned by CreateIfAbsent.
func ErrUserExists() error {
	return apperrors.NewAlreadyExists("User already exists")
}

// pgxPool is the subset of *pgxpool.Pool used here; pgxmock satisfies it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type userRepository struct {
	pool pgxPool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool pgxPool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `email, user_id, password_hash, name, created_at, updated_at, login_attempts, locked_until`

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (` + userColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (email) DO NOTHING`

	cmd, err := r.pool.Exec(ctx, query,
		user.Email,
		user.ID,
		user.PasswordHash,
		user.Name,
		user.CreatedAt,
		user.UpdatedAt,
		user.LoginAttempts,
		user.LockedUntil,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrUserExists()
		}
		return apperrors.NewStoreUnavailable(fmt.Errorf("insert user: %w", err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserExists()
	}
	return nil
}

func (r *userRepository) UpdateLoginState(ctx context.Context, email string, attempts int, lockedUntil *time.Time) error {
	const query = `
        UPDATE users SET login_attempts=$2, locked_until=$3, updated_at=NOW()
        WHERE email=$1`

	cmd, err := r.pool.Exec(ctx, query, email, attempts, lockedUntil)
	if err != nil {
		return apperrors.NewStoreUnavailable(fmt.Errorf("update login state: %w", err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE email=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, email), "get user by email")
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE user_id=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get user by id")
}

func (r *userRepository) scanOne(row pgx.Row, op string) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.Email,
		&user.ID,
		&user.PasswordHash,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LoginAttempts,
		&user.LockedUntil,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.NewStoreUnavailable(fmt.Errorf("%s: %w", op, err))
	}
	return &user, nil
}
