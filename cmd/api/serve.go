package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/credential-service/internal/api/http"
	"github.com/spec-kit/credential-service/internal/api/http/handlers"
	"github.com/spec-kit/credential-service/internal/auth"
	"github.com/spec-kit/credential-service/internal/config"
	"github.com/spec-kit/credential-service/internal/events"
	"github.com/spec-kit/credential-service/internal/observability"
	"github.com/spec-kit/credential-service/internal/persistence"
	"github.com/spec-kit/credential-service/internal/secrets"
	"github.com/spec-kit/credential-service/internal/service"
	"github.com/spec-kit/credential-service/internal/worker"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsLoader := persistence.NewAWSLoader(cfg.AWS)

	store, err := persistence.OpenUserStore(ctx, cfg, awsLoader, logger)
	if err != nil {
		logger.Error("failed to open credential store", zap.Error(err))
		return err
	}
	defer store.Close()

	provider, err := newSecretProvider(ctx, cfg, awsLoader)
	if err != nil {
		logger.Error("failed to build secret provider", zap.Error(err))
		return err
	}
	secretCache := secrets.NewCache(provider)

	metrics := observability.NewMetrics("credential_service")
	dispatcher := events.NewInMemoryDispatcher(func(e events.Event, err error) {
		logger.Warn("event handler failed", zap.String("type", string(e.Type)), zap.Error(err))
	})
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Users:  store.Users,
		Hasher: auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens: auth.NewTokenManager(secretCache, cfg.Auth.AccessTokenTTL()),
		Events: dispatcher,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	checks := map[string]handlers.Pinger{
		"secrets": handlers.PingFunc(func(ctx context.Context) error {
			_, err := secretCache.Get(ctx)
			return err
		}),
	}
	for name, check := range store.Checks {
		checks[name] = check
	}

	app := httptransport.NewApp(httptransport.ServerConfig{
		AppName:        cfg.App.Name,
		Development:    cfg.IsDevelopment(),
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Metrics:        metrics,
	}, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Users:          handlers.NewUsersHandler(authService, logger),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
		Metrics:        metrics,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	return app.Shutdown()
}

func newSecretProvider(ctx context.Context, cfg *config.Config, awsLoader persistence.AWSLoader) (secrets.Provider, error) {
	switch cfg.Auth.SecretProvider {
	case config.SecretProviderStatic:
		return secrets.NewStaticProvider(cfg.Auth.JWTSecret), nil
	case config.SecretProviderSecretsManager:
		awsCfg, err := awsLoader(ctx)
		if err != nil {
			return nil, err
		}
		client := secrets.NewSecretsManagerClient(awsCfg, cfg.AWS.Endpoint)
		return secrets.NewSecretsManagerProvider(client, cfg.Auth.JWTSecretName), nil
	default:
		return nil, fmt.Errorf("unknown secret provider %q", cfg.Auth.SecretProvider)
	}
}
