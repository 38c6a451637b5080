package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("requires database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/sc2sm")
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, PlaceholderWebhookSecret, cfg.WebhookSecret)
		assert.Equal(t, "https://api.coderabbit.ai/api/v1", cfg.CodeRabbit.APIBaseURL)
		assert.Equal(t, 120*time.Second, cfg.CodeRabbit.Timeout)
		assert.Equal(t, 4, cfg.Workers.Workers)
		assert.Equal(t, 64, cfg.Workers.QueueSize)
		assert.Equal(t, "@every 1m", cfg.Scheduler.PublishSpec)
		assert.Equal(t, "http://localhost:8080/oauth/x/callback", cfg.X.RedirectURI)
		assert.Equal(t, 100, cfg.GitHub.MaxPendingDevices)
		assert.True(t, cfg.X.LegacyEnabled)
	})

	t.Run("reads environment overrides", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/sc2sm")
		t.Setenv("PORT", "9090")
		t.Setenv("REPORT_WORKERS", "2")
		t.Setenv("LLM_TIMEOUT", "5s")
		t.Setenv("TWITTER_ACCESS_TOKEN", "token")
		t.Setenv("ALLOW_UNSIGNED_WEBHOOKS", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, 2, cfg.Workers.Workers)
		assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
		assert.Equal(t, "token", cfg.X.AccessToken)
		assert.True(t, cfg.AllowUnsignedWebhooks)
	})

	t.Run("production requires a secret key", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/sc2sm")
		t.Setenv("ENVIRONMENT", "production")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestWebhookVerificationDisabled(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		expect bool
	}{
		{"placeholder with opt-in", Config{WebhookSecret: PlaceholderWebhookSecret, AllowUnsignedWebhooks: true}, true},
		{"empty with opt-in", Config{AllowUnsignedWebhooks: true}, true},
		{"placeholder without opt-in", Config{WebhookSecret: PlaceholderWebhookSecret}, false},
		{"real secret", Config{WebhookSecret: "s3cret", AllowUnsignedWebhooks: true}, false},
		{"production", Config{Environment: "production", AllowUnsignedWebhooks: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.cfg.WebhookVerificationDisabled())
		})
	}
}
