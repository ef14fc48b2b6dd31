package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{"DATASTORE", "PROGRESS_STORE", "AUTH_MODE", "GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMINI_USE_VERTEX", "CACHE_TTL", "PORT"} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DataStore)
	assert.Equal(t, "memory", cfg.Progress.Store)
	assert.Equal(t, "noop", cfg.Auth.Mode)
	assert.Equal(t, "demo_user_001", cfg.DefaultUserID)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.Recommend.RetryAttempts)
	assert.False(t, cfg.GeminiEnabled())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATASTORE", "firestore")
	t.Setenv("GCP_PROJECT_ID", "steppy-dev")
	t.Setenv("GOOGLE_API_KEY", "key")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("PROGRESS_STORE", "sqlite")
	t.Setenv("PROGRESS_SQLITE_PATH", "/tmp/p.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "firestore", cfg.DataStore)
	assert.Equal(t, "key", cfg.Recommend.APIKey)
	assert.True(t, cfg.GeminiEnabled())
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "/tmp/p.db", cfg.Progress.SQLitePath)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown datastore", map[string]string{"DATASTORE": "postgres"}},
		{"firestore without project", map[string]string{"DATASTORE": "firestore", "GCP_PROJECT_ID": ""}},
		{"clerk without jwks", map[string]string{"AUTH_MODE": "clerk", "CLERK_JWKS_URL": ""}},
		{"gcs without bucket", map[string]string{"PROGRESS_STORE": "gcs", "PROGRESS_BUCKET": ""}},
		{"non numeric port", map[string]string{"PORT": "http"}},
		{"too many retries", map[string]string{"RECOMMEND_RETRY_ATTEMPTS": "50"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
