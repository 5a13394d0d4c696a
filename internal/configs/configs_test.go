package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDevelopmentDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("ALLOWED_ORIGINS", " http://localhost:3000 , ,http://127.0.0.1:3000")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4, cfg.PowDifficulty)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, devDatabaseDSN, cfg.DatabaseDSN)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "chatroom", cfg.Platform.ProjectID)
	assert.False(t, cfg.AvatarsEnabled())
	assert.False(t, cfg.Federated.Enabled())
	assert.Equal(t, "UTC", cfg.DisplayLocation().String())
}

func TestLoadConfigPlatformSettings(t *testing.T) {
	t.Setenv("PLATFORM_API_KEY", "key")
	t.Setenv("PLATFORM_PROJECT_ID", "demo")
	t.Setenv("PLATFORM_MESSAGING_SENDER_ID", "sender")
	t.Setenv("PLATFORM_APP_ID", "app")
	t.Setenv("PLATFORM_MEASUREMENT_ID", "G-1")
	t.Setenv("S3_BUCKET_NAME", "avatars")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("S3_ACCESS_KEY_ID", "id")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, PlatformConfig{
		APIKey:            "key",
		ProjectID:         "demo",
		StorageBucket:     "avatars",
		MessagingSenderID: "sender",
		AppID:             "app",
		MeasurementID:     "G-1",
	}, cfg.Platform)
	assert.True(t, cfg.AvatarsEnabled())
}

func TestLoadConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"privileged port", map[string]string{"PORT": "80"}},
		{"port not a number", map[string]string{"PORT": "http"}},
		{"production without secret", map[string]string{"ENVIRONMENT": "production", "DATABASE_URL": "postgres://x"}},
		{"production without bucket", map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "s", "DATABASE_URL": "postgres://x"}},
		{"incomplete s3", map[string]string{"S3_BUCKET_NAME": "b", "S3_ENDPOINT": "http://s3"}},
		{"memory store in production", map[string]string{
			"ENVIRONMENT": "production", "JWT_SECRET": "s", "STORE_DRIVER": "memory",
			"S3_BUCKET_NAME": "b", "S3_ENDPOINT": "e", "S3_ACCESS_KEY_ID": "i", "S3_SECRET_ACCESS_KEY": "k",
		}},
		{"unknown store driver", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"bad timezone", map[string]string{"DISPLAY_TIMEZONE": "Mars/Olympus"}},
		{"issuer without audience", map[string]string{"FEDERATED_ISSUER": "https://accounts.google.com"}},
		{"difficulty too high", map[string]string{"POW_DIFFICULTY": "20"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMemoryStoreInDevelopment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Empty(t, cfg.DatabaseDSN)
}

func TestLoadConfigGoogleDefaults(t *testing.T) {
	t.Setenv("FEDERATED_AUDIENCE", "client-id.apps.googleusercontent.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Federated.Enabled())
	assert.Equal(t, GoogleIssuer, cfg.Federated.Issuer)
	assert.Equal(t, GoogleJWKSURL, cfg.Federated.JWKSURL)
}

func TestLoadConfigFederatedKeyOverride(t *testing.T) {
	t.Setenv("FEDERATED_PROVIDER", "acme")
	t.Setenv("FEDERATED_ISSUER", "https://id.acme.test")
	t.Setenv("FEDERATED_AUDIENCE", "chatroom")
	t.Setenv("FEDERATED_SHARED_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Federated.Enabled())
	assert.Empty(t, cfg.Federated.JWKSURL)
}
