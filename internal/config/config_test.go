package config

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "APP_HTTP_ADDR", "METRICS_ADDR", "ADMIN_API_KEY", "LOG_LEVEL", "LOG_FORMAT",
		"JOB_STORE", "DB_DSN", "NATS_URL", "NATS_JOBS_BUCKET", "REDIS_ADDR", "REDIS_PASSWORD",
		"REDIS_DB", "JOB_BUCKET_MINUTES", "JOB_RETENTION", "ROLLOUT_HASH",
		"EVAL_RATE_LIMIT",
	} {
		t.Setenv(key, "")
	}
}

func validConfig() *Config {
	return &Config{
		AppEnv:           "dev",
		HTTPAddr:         ":8080",
		MetricsAddr:      ":9090",
		AdminAPIKey:      "admin-123",
		LogLevel:         "info",
		LogFormat:        "console",
		StoreType:        "memory",
		JobBucketMinutes: 5,
		JobRetention:     time.Hour,
		RolloutHash:      "murmur3",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "dev" {
		t.Errorf("Expected AppEnv='dev', got '%s'", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected HTTPAddr=':8080', got '%s'", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("Expected MetricsAddr=':9090', got '%s'", cfg.MetricsAddr)
	}
	if cfg.StoreType != "memory" {
		t.Errorf("Expected StoreType='memory', got '%s'", cfg.StoreType)
	}
	if cfg.NATSBucket != "flagship-jobs" {
		t.Errorf("Expected NATSBucket='flagship-jobs', got '%s'", cfg.NATSBucket)
	}
	if cfg.JobBucketMinutes != 5 {
		t.Errorf("Expected JobBucketMinutes=5, got %d", cfg.JobBucketMinutes)
	}
	if cfg.BucketSize() != 5*time.Minute {
		t.Errorf("Expected BucketSize()=5m, got %s", cfg.BucketSize())
	}
	if cfg.JobRetention != 168*time.Hour {
		t.Errorf("Expected JobRetention=168h, got %s", cfg.JobRetention)
	}
	if cfg.RolloutHash != "murmur3" {
		t.Errorf("Expected RolloutHash='murmur3', got '%s'", cfg.RolloutHash)
	}
	if cfg.EvalRateLimit != 600 {
		t.Errorf("Expected EvalRateLimit=600, got %d", cfg.EvalRateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("APP_HTTP_ADDR", ":9999")
	t.Setenv("JOB_STORE", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("JOB_BUCKET_MINUTES", "15")
	t.Setenv("JOB_RETENTION", "24h")
	t.Setenv("ROLLOUT_HASH", "xxhash")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("EVAL_RATE_LIMIT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "staging" {
		t.Errorf("Expected AppEnv='staging', got '%s'", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("Expected HTTPAddr=':9999', got '%s'", cfg.HTTPAddr)
	}
	if cfg.StoreType != "redis" || cfg.RedisAddr != "cache:6380" || cfg.RedisDB != 3 {
		t.Errorf("Unexpected redis settings: %+v", cfg)
	}
	if cfg.BucketSize() != 15*time.Minute {
		t.Errorf("Expected BucketSize()=15m, got %s", cfg.BucketSize())
	}
	if cfg.JobRetention != 24*time.Hour {
		t.Errorf("Expected JobRetention=24h, got %s", cfg.JobRetention)
	}
	if cfg.RolloutHash != "xxhash" {
		t.Errorf("Expected RolloutHash='xxhash', got '%s'", cfg.RolloutHash)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected LogFormat='json', got '%s'", cfg.LogFormat)
	}
	if cfg.EvalRateLimit != 0 {
		t.Errorf("Expected EvalRateLimit=0, got %d", cfg.EvalRateLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown store", func(c *Config) { c.StoreType = "etcd" }, "JOB_STORE"},
		{"postgres without dsn", func(c *Config) { c.StoreType = "postgres" }, "DB_DSN"},
		{"postgres with dsn", func(c *Config) { c.StoreType = "postgres"; c.DatabaseDSN = "postgres://x" }, ""},
		{"nats without url", func(c *Config) { c.StoreType = "nats"; c.NATSBucket = "b" }, "NATS_URL"},
		{"nats without bucket", func(c *Config) { c.StoreType = "nats"; c.NATSURL = "nats://x" }, "NATS_JOBS_BUCKET"},
		{"redis without addr", func(c *Config) { c.StoreType = "redis" }, "REDIS_ADDR"},
		{"empty http addr", func(c *Config) { c.HTTPAddr = "" }, "APP_HTTP_ADDR"},
		{"empty metrics addr", func(c *Config) { c.MetricsAddr = "" }, "METRICS_ADDR"},
		{"zero bucket", func(c *Config) { c.JobBucketMinutes = 0 }, "JOB_BUCKET_MINUTES"},
		{"negative retention", func(c *Config) { c.JobRetention = -time.Hour }, "JOB_RETENTION"},
		{"unknown hash", func(c *Config) { c.RolloutHash = "md5" }, "ROLLOUT_HASH"},
		{"negative rate limit", func(c *Config) { c.EvalRateLimit = -1 }, "EVAL_RATE_LIMIT"},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"prod default key", func(c *Config) { c.AppEnv = "prod" }, "ADMIN_API_KEY"},
		{"production default key", func(c *Config) { c.AppEnv = "production" }, "ADMIN_API_KEY"},
		{"prod custom key", func(c *Config) { c.AppEnv = "prod"; c.AdminAPIKey = "s3cret" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Expected field %s, got %s", tt.wantField, verr.Field)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Field: "JOB_STORE", Message: "bad"}
	want := "config validation failed [JOB_STORE]: bad"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
