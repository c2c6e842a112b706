package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/credential-service/internal/domain"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// createUserScript writes the user hash and the id index only if the hash is absent.
// KEYS[1] user hash, KEYS[2] id index; ARGV[1] email, ARGV[2..] field/value pairs.
var createUserScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('SET', KEYS[2], ARGV[1])
return 1
`)

// updateLoginStateScript only touches existing users so a stray update never creates a
// partial record.
var updateLoginStateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'loginAttempts', ARGV[1], 'lockedUntil', ARGV[2], 'updatedAt', ARGV[3])
return 1
`)

type redisUserRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisUserRepository returns a Redis-backed implementation storing one hash per user.
// createUserScript touches two keys in different slots, so it needs a single-node client.
func NewRedisUserRepository(client *redis.Client) UserRepository {
	return &redisUserRepository{client: client, now: time.Now}
}

func userKey(email string) string {
	return "user:" + email
}

func userIDKey(id string) string {
	return "user-id:" + id
}

func (r *redisUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	fields, err := r.client.HGetAll(ctx, userKey(email)).Result()
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(fmt.Errorf("get user by email: %w", err))
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}
	return decodeUserHash(fields)
}

func (r *redisUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	email, err := r.client.Get(ctx, userIDKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(fmt.Errorf("get user by id: %w", err))
	}
	return r.GetByEmail(ctx, email)
}

func (r *redisUserRepository) CreateIfAbsent(ctx context.Context, user *domain.User) error {
	args := []any{
		user.Email,
		"email", user.Email,
		"userId", user.ID,
		"passwordHash", user.PasswordHash,
		"createdAt", formatTime(user.CreatedAt),
		"updatedAt", formatTime(user.UpdatedAt),
		"loginAttempts", strconv.Itoa(user.LoginAttempts),
		"lockedUntil", formatOptionalTime(user.LockedUntil),
	}
	if user.Name != nil {
		args = append(args, "name", *user.Name)
	}

	created, err := createUserScript.Run(ctx, r.client, []string{userKey(user.Email), userIDKey(user.ID)}, args...).Int()
	if err != nil {
		return apperrors.NewStoreUnavailable(fmt.Errorf("create user: %w", err))
	}
	if created == 0 {
		return ErrUserExists()
	}
	return nil
}

func (r *redisUserRepository) UpdateLoginState(ctx context.Context, email string, attempts int, lockedUntil *time.Time) error {
	updated, err := updateLoginStateScript.Run(ctx, r.client, []string{userKey(email)},
		strconv.Itoa(attempts),
		formatOptionalTime(lockedUntil),
		formatTime(r.now()),
	).Int()
	if err != nil {
		return apperrors.NewStoreUnavailable(fmt.Errorf("update login state: %w", err))
	}
	if updated == 0 {
		return ErrUserNotFound
	}
	return nil
}

func decodeUserHash(fields map[string]string) (*domain.User, error) {
	user := &domain.User{
		Email:        fields["email"],
		ID:           fields["userId"],
		PasswordHash: fields["passwordHash"],
	}
	if name, ok := fields["name"]; ok {
		user.Name = &name
	}

	var err error
	if user.CreatedAt, err = parseTime(fields["createdAt"]); err != nil {
		return nil, apperrors.NewStoreUnavailable(fmt.Errorf("decode createdAt: %w", err))
	}
	if user.UpdatedAt, err = parseTime(fields["updatedAt"]); err != nil {
		return nil, apperrors.NewStoreUnavailable(fmt.Errorf("decode updatedAt: %w", err))
	}
	if raw := fields["loginAttempts"]; raw != "" {
		if user.LoginAttempts, err = strconv.Atoi(raw); err != nil {
			return nil, apperrors.NewStoreUnavailable(fmt.Errorf("decode loginAttempts: %w", err))
		}
	}
	if raw := fields["lockedUntil"]; raw != "" {
		lockedUntil, err := parseTime(raw)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(fmt.Errorf("decode lockedUntil: %w", err))
		}
		user.LockedUntil = &lockedUntil
	}
	return user, nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
