package secrets

import (
	"context"
	"sync"
	"sync/atomic"

	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// Cache holds the signing secret for the lifetime of the process.
//
// The secret is fetched lazily on first use and kept until Invalidate is called; there is no
// time-based refresh. Concurrent misses may each call the provider. A fetch that started before
// an Invalidate is returned to its caller but not stored.
type Cache struct {
	provider Provider

	mu         sync.RWMutex
	secret     string
	loaded     bool
	generation uint64

	fetches atomic.Int64
}

// NewCache builds an empty cache in front of provider.
func NewCache(provider Provider) *Cache {
	return &Cache{provider: provider}
}

// Get returns the cached secret, fetching it from the provider on a miss.
func (c *Cache) Get(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.loaded {
		secret := c.secret
		c.mu.RUnlock()
		return secret, nil
	}
	generation := c.generation
	c.mu.RUnlock()

	c.fetches.Add(1)
	secret, err := c.provider.GetSecret(ctx)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeSecretUnavailable) {
			return "", err
		}
		return "", apperrors.NewSecretUnavailable(err)
	}
	if secret == "" {
		return "", apperrors.NewSecretUnavailable(ErrEmptySecret)
	}

	c.mu.Lock()
	if c.generation == generation {
		c.secret = secret
		c.loaded = true
	}
	c.mu.Unlock()

	return secret, nil
}

// Invalidate drops the cached secret so the next Get re-fetches it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.secret = ""
	c.loaded = false
	c.generation++
	c.mu.Unlock()
}

// Fetches returns how many times the provider has been called.
func (c *Cache) Fetches() int64 {
	return c.fetches.Load()
}
