package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SECRET_PROVIDER", "")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "credential-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, SecretProviderStatic, cfg.Auth.SecretProvider)
	assert.Equal(t, "dev-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LockoutDuration())
	assert.True(t, cfg.Logger.Development)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "DynamoDB")
	t.Setenv("USERS_TABLE", "users")
	t.Setenv("SECRET_PROVIDER", "secretsmanager")
	t.Setenv("JWT_SECRET_NAME", "auth/jwt")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("LOCKOUT_MINUTES", "1")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDynamoDB, cfg.Store.Driver)
	assert.Equal(t, "users", cfg.Store.UsersTable)
	assert.Equal(t, "auth/jwt", cfg.Auth.JWTSecretName)
	assert.Equal(t, 3, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, time.Minute, cfg.Auth.LockoutDuration())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL(), "invalid ints fall back to defaults")
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SECRET_PROVIDER", "static")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store: StoreConfig{Driver: StoreMemory},
			Auth: AuthConfig{
				SecretProvider:   SecretProviderStatic,
				JWTSecret:        "k",
				MaxLoginAttempts: 5,
				LockoutMinutes:   15,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Driver = StorePostgres }, wantErr: "POSTGRES_DSN"},
		{name: "dynamodb without table", mutate: func(c *Config) { c.Store.Driver = StoreDynamoDB }, wantErr: "USERS_TABLE"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: "STORE_DRIVER"},
		{name: "secretsmanager without name", mutate: func(c *Config) { c.Auth.SecretProvider = SecretProviderSecretsManager }, wantErr: "JWT_SECRET_NAME"},
		{name: "unknown provider", mutate: func(c *Config) { c.Auth.SecretProvider = "vault" }, wantErr: "SECRET_PROVIDER"},
		{name: "zero attempts", mutate: func(c *Config) { c.Auth.MaxLoginAttempts = 0 }, wantErr: "MAX_LOGIN_ATTEMPTS"},
		{name: "zero lockout", mutate: func(c *Config) { c.Auth.LockoutMinutes = 0 }, wantErr: "LOCKOUT_MINUTES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
