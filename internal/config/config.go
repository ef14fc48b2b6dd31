package config

import (
	"fmt"
	"time"

	"github.com/steppy/steppy-service/internal/shared/envconfig"
)

type Config struct {
	Port          string `validate:"required,numeric"`
	GCPProjectID  string
	DataStore     string `validate:"required,oneof=memory firestore"`
	Timezone      string
	DefaultUserID string `validate:"required"`
	LogLevel      string `validate:"omitempty,oneof=debug info warn warning error"`
	Auth          AuthConfig
	Firestore     FirestoreConfig
	Recommend     RecommendConfig
	Progress      ProgressConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
}

type AuthConfig struct {
	Mode     string `validate:"omitempty,oneof=noop clerk"`
	JWKSURL  string `validate:"omitempty,url"`
	Audience string
	Issuer   string
}

type FirestoreConfig struct {
	Database     string
	EmulatorHost string
}

type RecommendConfig struct {
	APIKey          string
	Model           string `validate:"required"`
	MaxOutputTokens int    `validate:"gte=0"`
	RetryAttempts   int    `validate:"gte=1,lte=10"`
	UseVertex       bool
	Location        string
}

type ProgressConfig struct {
	Store      string `validate:"required,oneof=memory sqlite gcs"`
	SQLitePath string
	Bucket     string
}

type CacheConfig struct {
	TTL  time.Duration `validate:"gt=0"`
	Size int           `validate:"gt=0"`
}

type RateLimitConfig struct {
	RPS   float64 `validate:"gte=0"`
	Burst int     `validate:"gte=0"`
}

func Load() (Config, error) {
	cfg := Config{
		Port:          envconfig.Get("PORT", "8080"),
		GCPProjectID:  envconfig.Get("GCP_PROJECT_ID", ""),
		DataStore:     envconfig.Get("DATASTORE", "memory"),
		Timezone:      envconfig.Get("STEPPY_TIMEZONE", ""),
		DefaultUserID: envconfig.Get("DEFAULT_USER_ID", "demo_user_001"),
		LogLevel:      envconfig.Get("LOG_LEVEL", "info"),
		Auth: AuthConfig{
			Mode:     envconfig.Get("AUTH_MODE", "noop"),
			JWKSURL:  envconfig.Get("CLERK_JWKS_URL", ""),
			Audience: envconfig.Get("CLERK_AUDIENCE", ""),
			Issuer:   envconfig.Get("CLERK_ISSUER", ""),
		},
		Firestore: FirestoreConfig{
			Database:     envconfig.Get("FIRESTORE_DATABASE", "(default)"),
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
		},
		Recommend: RecommendConfig{
			APIKey:          envconfig.Get("GEMINI_API_KEY", envconfig.Get("GOOGLE_API_KEY", "")),
			Model:           envconfig.Get("GEMINI_MODEL", "gemini-2.5-flash"),
			MaxOutputTokens: envconfig.GetInt("RECOMMEND_MAX_OUTPUT_TOKENS", 1024),
			RetryAttempts:   envconfig.GetInt("RECOMMEND_RETRY_ATTEMPTS", 3),
			UseVertex:       envconfig.GetBool("GEMINI_USE_VERTEX", false),
			Location:        envconfig.Get("GOOGLE_CLOUD_LOCATION", "us-central1"),
		},
		Progress: ProgressConfig{
			Store:      envconfig.Get("PROGRESS_STORE", "memory"),
			SQLitePath: envconfig.Get("PROGRESS_SQLITE_PATH", "steppy-progress.db"),
			Bucket:     envconfig.Get("PROGRESS_BUCKET", ""),
		},
		Cache: CacheConfig{
			TTL:  envconfig.GetDuration("CACHE_TTL", 60*time.Second),
			Size: envconfig.GetInt("CACHE_SIZE", 1024),
		},
		RateLimit: RateLimitConfig{
			RPS:   envconfig.GetFloat("RATE_LIMIT_RPS", 0),
			Burst: envconfig.GetInt("RATE_LIMIT_BURST", 100),
		},
	}
	if err := envconfig.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

// validate covers the checks that span several fields.
func (c Config) validate() error {
	switch {
	case c.DataStore == "firestore" && c.GCPProjectID == "":
		return fmt.Errorf("GCP_PROJECT_ID is required when DATASTORE=firestore")
	case c.Auth.Mode == "clerk" && c.Auth.JWKSURL == "":
		return fmt.Errorf("CLERK_JWKS_URL is required when AUTH_MODE=clerk")
	case c.Progress.Store == "sqlite" && c.Progress.SQLitePath == "":
		return fmt.Errorf("PROGRESS_SQLITE_PATH is required when PROGRESS_STORE=sqlite")
	case c.Progress.Store == "gcs" && c.Progress.Bucket == "":
		return fmt.Errorf("PROGRESS_BUCKET is required when PROGRESS_STORE=gcs")
	case c.Recommend.UseVertex && c.GCPProjectID == "":
		return fmt.Errorf("GCP_PROJECT_ID is required when GEMINI_USE_VERTEX is set")
	}
	return nil
}

// GeminiEnabled reports whether a Gemini recommender can be built.
func (c Config) GeminiEnabled() bool {
	return c.Recommend.UseVertex || c.Recommend.APIKey != ""
}
