package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/credential-service/internal/config"
	"github.com/spec-kit/credential-service/internal/repository"
)

// Pinger is a readiness check for a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserStore is the credential store selected by STORE_DRIVER with its readiness checks.
type UserStore struct {
	Users   repository.UserRepository
	Checks  map[string]Pinger
	closers []func()
}

// Close releases backend connections.
func (s *UserStore) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenUserStore connects the configured backend. Postgres migrations run first when enabled.
func OpenUserStore(ctx context.Context, cfg *config.Config, awsCfg AWSLoader, logger *zap.Logger) (*UserStore, error) {
	store := &UserStore{Checks: map[string]Pinger{}}

	switch cfg.Store.Driver {
	case config.StoreMemory:
		logger.Warn("using in-memory credential store; accounts are lost on restart")
		store.Users = repository.NewMemoryUserRepository()

	case config.StorePostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store.closers = append(store.closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				store.Close()
				return nil, err
			}
		}
		store.Users = repository.NewUserRepository(pg.PoolHandle())
		store.Checks["postgres"] = pg

	case config.StoreRedis:
		rdb := NewRedis(ctx, cfg.Redis, logger)
		store.closers = append(store.closers, rdb.Close)
		store.Users = repository.NewRedisUserRepository(rdb.Client)
		store.Checks["redis"] = rdb

	case config.StoreDynamoDB:
		resolved, err := awsCfg(ctx)
		if err != nil {
			return nil, err
		}
		db := NewDynamoDB(resolved, cfg.AWS.Endpoint, cfg.Store.UsersTable)
		store.Users = repository.NewDynamoUserRepository(db.Client, db.Table)
		store.Checks["dynamodb"] = db

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	logger.Info("credential store ready", zap.String("driver", cfg.Store.Driver))
	return store, nil
}
