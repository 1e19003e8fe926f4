package config

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEV_MODE", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("FRONTEND_URL", "https://app.example.com/")
	t.Setenv("GOOGLE_REDIRECT_URL", "")
	t.Setenv("GOOGLE_SCOPES", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("PORT", "")
	t.Setenv("TOKEN_CACHE_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.DevMode)
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
	assert.Equal(t, "https://app.example.com/api/drive/callback", cfg.GoogleRedirectURL)
	assert.Equal(t, DefaultScopes, cfg.GoogleScopes)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DefaultTokenCacheSize, cfg.TokenCacheSize)
}

func TestLoad_DevMode(t *testing.T) {
	t.Setenv("DEV_MODE", "true")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("GOOGLE_REDIRECT_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.DevMode)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, "http://localhost:3000/api/drive/callback", cfg.GoogleRedirectURL)
}

// The callback page is only trusted by the opener when both share an origin.
func TestLoad_CallbackSharesFrontendOrigin(t *testing.T) {
	for _, devMode := range []string{"", "true"} {
		t.Run("dev="+devMode, func(t *testing.T) {
			t.Setenv("DEV_MODE", devMode)
			t.Setenv("FRONTEND_URL", "")
			t.Setenv("GOOGLE_REDIRECT_URL", "")

			cfg, err := Load()
			require.NoError(t, err)

			frontend, err := url.Parse(cfg.FrontendURL)
			require.NoError(t, err)
			callback, err := url.Parse(cfg.GoogleRedirectURL)
			require.NoError(t, err)
			assert.Equal(t, frontend.Scheme, callback.Scheme)
			assert.Equal(t, frontend.Host, callback.Host)
		})
	}
}

func TestLoad_RedirectOriginMismatch(t *testing.T) {
	t.Setenv("FRONTEND_URL", "http://localhost:3000")
	t.Setenv("GOOGLE_REDIRECT_URL", "http://localhost:8080/drive/callback")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match FRONTEND_URL")
}

func TestLoad_ExplicitRedirectSameOrigin(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://app.example.com")
	t.Setenv("GOOGLE_REDIRECT_URL", "https://app.example.com/oauth/callback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/oauth/callback", cfg.GoogleRedirectURL)
}

func TestLoad_DevModeDefaultsToMemoryStore(t *testing.T) {
	t.Setenv("DEV_MODE", "true")
	t.Setenv("STORE_BACKEND", BackendMemory)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendBolt)
	t.Setenv("GOOGLE_SCOPES", "scope-a, scope-b,,")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("DRIVE_FOLDER_NAME", "Class Files")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendBolt, cfg.StoreBackend)
	assert.Equal(t, []string{"scope-a", "scope-b"}, cfg.GoogleScopes)
	assert.Equal(t, int64(2048), cfg.MaxUploadBytes)
	assert.Equal(t, "Class Files", cfg.FolderName)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "STORE_BACKEND", "postgres"},
		{"non-numeric port", "PORT", "eighty"},
		{"negative upload size", "MAX_UPLOAD_BYTES", "-1"},
		{"non-numeric cache size", "TOKEN_CACHE_SIZE", "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
