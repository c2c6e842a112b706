package auth

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/credential-service/internal/secrets"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// DefaultAccessTokenTTL is used when no TTL is configured or passed to Sign.
const DefaultAccessTokenTTL = 15 * time.Minute

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secrets *secrets.Cache
	ttl     time.Duration
	now     func() time.Time
}

// NewTokenManager builds a new manager backed by the given secret cache.
func NewTokenManager(cache *secrets.Cache, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &TokenManager{secrets: cache, ttl: ttl, now: time.Now}
}

// Claims describes JWT payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the subject identifier.
func (c *Claims) UserID() string {
	return c.Subject
}

// TTL returns the default token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Sign builds and signs a JWT for the subject. A non-positive ttl uses the default lifetime.
func (tm *TokenManager) Sign(ctx context.Context, userID, email string, ttl time.Duration) (string, time.Time, error) {
	secret, err := tm.secrets.Get(ctx)
	if err != nil {
		return "", time.Time{}, err
	}
	if ttl <= 0 {
		ttl = tm.ttl
	}

	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return tokenString, expiresAt, nil
}

// Verify validates signature and expiry and returns the claims.
func (tm *TokenManager) Verify(ctx context.Context, tokenStr string) (*Claims, error) {
	secret, err := tm.secrets.Get(ctx)
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errUnexpectedSigningMethod
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperrors.NewInvalidToken(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, apperrors.NewInvalidToken(errors.New("invalid token claims"))
	}
	return claims, nil
}

// Invalidate forces the signing secret to be re-fetched on next use.
func (tm *TokenManager) Invalidate() {
	tm.secrets.Invalidate()
}
