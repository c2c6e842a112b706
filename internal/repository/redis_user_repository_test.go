package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisUserRepository_Contract(t *testing.T) {
	_, client := newMiniredisClient(t)
	exerciseUserRepository(t, NewRedisUserRepository(client))
}

func TestRedisUserRepository_Layout(t *testing.T) {
	mr, client := newMiniredisClient(t)
	repo := NewRedisUserRepository(client)

	user := newTestUser()
	require.NoError(t, repo.CreateIfAbsent(context.Background(), user))

	assert.Equal(t, user.ID, mr.HGet("user:a@b.com", "userId"))
	assert.Equal(t, "0", mr.HGet("user:a@b.com", "loginAttempts"))
	assert.Equal(t, "", mr.HGet("user:a@b.com", "lockedUntil"))

	indexed, err := mr.Get("user-id:" + user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, indexed)
}

func TestRedisUserRepository_DuplicateLeavesIndexUntouched(t *testing.T) {
	mr, client := newMiniredisClient(t)
	repo := NewRedisUserRepository(client)
	ctx := context.Background()

	first := newTestUser()
	require.NoError(t, repo.CreateIfAbsent(ctx, first))

	second := newTestUser()
	second.ID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	err := repo.CreateIfAbsent(ctx, second)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyExists))

	assert.False(t, mr.Exists(userIDKey(second.ID)))
	assert.Equal(t, first.ID, mr.HGet(userKey(first.Email), "userId"))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Email, got.Email)
}

func TestRedisUserRepository_Unavailable(t *testing.T) {
	mr, client := newMiniredisClient(t)
	repo := NewRedisUserRepository(client)
	mr.Close()

	_, err := repo.GetByEmail(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreUnavailable))

	err = repo.CreateIfAbsent(context.Background(), newTestUser())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreUnavailable))
}
