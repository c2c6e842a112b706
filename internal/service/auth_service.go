package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/credential-service/internal/auth"
	"github.com/spec-kit/credential-service/internal/config"
	"github.com/spec-kit/credential-service/internal/domain"
	"github.com/spec-kit/credential-service/internal/events"
	"github.com/spec-kit/credential-service/internal/repository"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

const (
	minPasswordLength = 8
	msgAccountLocked  = "account locked due to repeated failed logins"
	timingPassword    = "credential-service-timing-equaliser"
)

// AuthService coordinates registration, login and lockout.
type AuthService struct {
	users     repository.UserRepository
	hasher    auth.PasswordHasher
	tokens    *auth.TokenManager
	events    events.Dispatcher
	logger    *zap.Logger
	policy    domain.LockoutPolicy
	now       func() time.Time
	dummyHash string
}

// AuthDependencies encapsulates collaborators of the auth service.
// Events, Logger and Now are optional.
type AuthDependencies struct {
	Users  repository.UserRepository
	Hasher auth.PasswordHasher
	Tokens *auth.TokenManager
	Events events.Dispatcher
	Logger *zap.Logger
	Now    func() time.Time
}

// NewAuthService builds the service. It hashes a throwaway password once so that
// logins for unknown emails cost the same as a real verification.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	if deps.Users == nil || deps.Hasher == nil || deps.Tokens == nil {
		return nil, errors.New("auth service requires users, hasher and tokens")
	}

	policy := domain.DefaultLockoutPolicy()
	if cfg.MaxLoginAttempts > 0 {
		policy.MaxAttempts = cfg.MaxLoginAttempts
	}
	if cfg.LockoutMinutes > 0 {
		policy.Duration = cfg.LockoutDuration()
	}

	dummyHash, err := deps.Hasher.Hash(timingPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &AuthService{
		users:     deps.Users,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		events:    deps.Events,
		logger:    logger,
		policy:    policy,
		now:       now,
		dummyHash: dummyHash,
	}, nil
}

// Register creates a new account. The store decides uniqueness; there is no prior read.
func (s *AuthService) Register(ctx context.Context, email, password string, name *string) (*domain.Registration, error) {
	email = domain.NormalizeEmail(email)
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, apperrors.NewValidationError(apperrors.FieldError{
			Field:   "password",
			Message: "Password must be at least 8 characters",
		})
	}

	if name != nil && *name == "" {
		name = nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		Email:        email,
		ID:           uuid.NewString(),
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateIfAbsent(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.Email, user.ID, now))
	return &domain.Registration{UserID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, nil
}

// Login verifies credentials and issues an access token. Unknown emails and wrong
// passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.hasher.Verify(password, s.dummyHash)
		s.publish(ctx, events.NewEvent(events.EventLoginFailed, email, "", s.now().UTC()))
		return nil, apperrors.NewInvalidCredentials()
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if user.IsLocked(now) {
		event := events.NewEvent(events.EventLoginRejectedLocked, user.Email, user.ID, now)
		event.LockedUntil = user.LockedUntil
		s.publish(ctx, event)
		return nil, apperrors.NewAccountLocked(msgAccountLocked)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		attempts, lockedUntil := s.policy.RecordFailure(user.LoginAttempts, now)
		if err := s.users.UpdateLoginState(ctx, user.Email, attempts, lockedUntil); err != nil {
			return nil, err
		}

		eventType := events.EventLoginFailed
		if lockedUntil != nil {
			eventType = events.EventAccountLocked
		}
		event := events.NewEvent(eventType, user.Email, user.ID, now)
		event.Attempts = attempts
		event.LockedUntil = lockedUntil
		s.publish(ctx, event)
		return nil, apperrors.NewInvalidCredentials()
	}

	attempts, lockedUntil := s.policy.RecordSuccess()
	if err := s.users.UpdateLoginState(ctx, user.Email, attempts, lockedUntil); err != nil {
		return nil, err
	}

	ttl := s.tokens.TTL()
	token, expiresAt, err := s.tokens.Sign(ctx, user.ID, user.Email, ttl)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, user.Email, user.ID, now))
	return &domain.AccessToken{
		AccessToken: token,
		TokenType:   domain.TokenTypeBearer,
		ExpiresIn:   formatTTL(ttl),
		ExpiresAt:   expiresAt,
	}, nil
}

// Authenticate verifies a bearer token. It satisfies auth.Authenticator.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	return s.tokens.Verify(ctx, token)
}

// Profile loads the account behind a verified token subject.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperrors.NewNotFound("Not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish auth event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

// formatTTL renders a duration the way clients expect expiresIn, e.g. "15m" or "1h".
func formatTTL(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
