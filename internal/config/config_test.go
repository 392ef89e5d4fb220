package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configContent := `
env: prod
migrations_path: "/srv/migrations"
database:
  host: "db"
  port: 5433
  name: "simulator"
  user: "app"
  password: "secret"
  sslmode: "require"
http_server:
  addresshttp: ":9000"
  timeouthttp: 30s
  idle_timeout: 60s
  trust_proxy: true
jwttoken:
  jwt_secret_key: "test_secret_key"
yookassa:
  shop_id: "123456"
  secret_key: "live_key"
  price: "1490.00"
  currency: "RUB"
redis_connection:
  addressredis: "localhost:6379"
  db: 1
rate_limits:
  login:
    requests: 3
    window: 1m
`
	t.Setenv("CONFIG_PATH", writeConfig(t, configContent))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.Env)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "/srv/migrations", cfg.MigrationsPath)
	assert.Equal(t, "postgres://app:secret@db:5433/simulator?sslmode=require", cfg.Database.DSN())
	assert.Equal(t, ":9000", cfg.AddressHTTP)
	assert.Equal(t, 30*time.Second, cfg.TimeoutHTTP)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, "test_secret_key", cfg.JWTSecretKey)
	assert.True(t, cfg.YooKassa.Enabled())
	assert.Equal(t, "1490.00", cfg.Price)
	assert.Equal(t, "https://api.yookassa.ru/v3", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.YooKassa.Timeout)
	assert.Equal(t, "localhost:6379", cfg.AddressRedis)
	assert.Equal(t, Limit{Requests: 3, Window: time.Minute}, cfg.RateLimits.Login)
	assert.Equal(t, DefaultRateLimits.Webhook, cfg.RateLimits.Webhook)
}

func TestLoad_DefaultValues(t *testing.T) {
	configContent := `
env: dev
jwttoken:
  jwt_secret_key: "test_secret"
`
	t.Setenv("CONFIG_PATH", writeConfig(t, configContent))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.AddressHTTP)
	assert.False(t, cfg.YooKassa.Enabled())
	assert.Equal(t, "990.00", cfg.Price)
	assert.Equal(t, "RUB", cfg.Currency)
	assert.Equal(t, DefaultRateLimits, cfg.RateLimits)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_TokenLifetimeIsNotConfigurable(t *testing.T) {
	configContent := `
env: dev
jwttoken:
  jwt_secret_key: "test_secret"
  token_ttl: 1h
`
	t.Setenv("CONFIG_PATH", writeConfig(t, configContent))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, JWTToken{JWTSecretKey: "test_secret"}, cfg.JWTToken)
}

func TestLoad_RateLimitWindow(t *testing.T) {
	tests := []struct {
		name    string
		limits  string
		wantErr string
	}{
		{
			name:    "nanosecond window",
			limits:  "login:\n    requests: 5\n    window: 3ns",
			wantErr: "rate limit login: window must be at least 1s",
		},
		{
			name:    "sub-second window",
			limits:  "webhook:\n    requests: 100\n    window: 500ms",
			wantErr: "rate limit webhook: window must be at least 1s",
		},
		{
			name:   "one second window",
			limits: "password:\n    requests: 5\n    window: 1s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configContent := "env: dev\njwttoken:\n  jwt_secret_key: \"secret\"\nrate_limits:\n  " + tt.limits + "\n"
			t.Setenv("CONFIG_PATH", writeConfig(t, configContent))

			cfg, err := Load()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, time.Second, cfg.RateLimits.Password.Window)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	configContent := `
env: local
`
	t.Setenv("CONFIG_PATH", writeConfig(t, configContent))

	cfg, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
	assert.Nil(t, cfg)
}

func TestLoad_UnknownEnv(t *testing.T) {
	configContent := `
env: staging
jwttoken:
  jwt_secret_key: "secret"
`
	t.Setenv("CONFIG_PATH", writeConfig(t, configContent))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown env")
}

func TestLoad_FileDoesNotExist(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("JWT_SECRET", "env_secret")
	t.Setenv("DB_HOST", "postgres")
	t.Setenv("YOOKASSA_SHOP_ID", "shop")
	t.Setenv("YOOKASSA_SECRET_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, "env_secret", cfg.JWTSecretKey)
	assert.Equal(t, "postgres", cfg.Database.Host)
	assert.True(t, cfg.YooKassa.Enabled())
}
