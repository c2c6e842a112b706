package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/credential-service/internal/domain"
)

type memoryUserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
	byID    map[string]string
	now     func() time.Time
}

// NewMemoryUserRepository returns a process-local store, used when no backend is configured.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byEmail: make(map[string]domain.User),
		byID:    make(map[string]string),
		now:     time.Now,
	}
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	email, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(r.byEmail[email]), nil
}

func (r *memoryUserRepository) CreateIfAbsent(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return ErrUserExists()
	}
	r.byEmail[user.Email] = *cloneUser(*user)
	r.byID[user.ID] = user.Email
	return nil
}

func (r *memoryUserRepository) UpdateLoginState(ctx context.Context, email string, attempts int, lockedUntil *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byEmail[email]
	if !ok {
		return ErrUserNotFound
	}
	user.LoginAttempts = attempts
	user.LockedUntil = copyTime(lockedUntil)
	user.UpdatedAt = r.now().UTC()
	r.byEmail[email] = user
	return nil
}

func cloneUser(u domain.User) *domain.User {
	out := u
	out.LockedUntil = copyTime(u.LockedUntil)
	if u.Name != nil {
		name := *u.Name
		out.Name = &name
	}
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
