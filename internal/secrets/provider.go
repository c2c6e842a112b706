// Package secrets supplies the token signing secret and caches it for the process.
package secrets

import (
	"context"
	"errors"

	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// ErrEmptySecret is returned when a provider yields no usable secret.
var ErrEmptySecret = errors.New("signing secret is empty")

// Provider fetches the symmetric signing secret.
// Implementations return errors of kind SECRET_UNAVAILABLE.
type Provider interface {
	GetSecret(ctx context.Context) (string, error)
}

// StaticProvider serves a secret taken from configuration.
type StaticProvider struct {
	secret string
}

// NewStaticProvider wraps a configured secret.
func NewStaticProvider(secret string) *StaticProvider {
	return &StaticProvider{secret: secret}
}

// GetSecret returns the configured secret.
func (p *StaticProvider) GetSecret(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.NewSecretUnavailable(err)
	}
	if p.secret == "" {
		return "", apperrors.NewSecretUnavailable(ErrEmptySecret)
	}
	return p.secret, nil
}
