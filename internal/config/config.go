package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

const (
	// PlaceholderWebhookSecret is the development default shipped in sample env files.
	PlaceholderWebhookSecret = "dev-webhook-secret"
	placeholderSecretKey     = "dev-secret-key"
)

type Config struct {
	Port                  string `mapstructure:"PORT"`
	Environment           string `mapstructure:"ENVIRONMENT"`
	BaseURL               string `mapstructure:"BASE_URL"`
	SecretKey             string `mapstructure:"SECRET_KEY"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	WebhookSecret         string `mapstructure:"WEBHOOK_SECRET"`
	AllowUnsignedWebhooks bool   `mapstructure:"ALLOW_UNSIGNED_WEBHOOKS"`

	GitHub     GitHubConfig     `mapstructure:",squash"`
	X          XConfig          `mapstructure:",squash"`
	LLM        LLMConfig        `mapstructure:",squash"`
	CodeRabbit CodeRabbitConfig `mapstructure:",squash"`
	Workers    WorkerConfig     `mapstructure:",squash"`
	Scheduler  SchedulerConfig  `mapstructure:",squash"`
}

// Load reads configuration from the environment. Callers load .env files
// into the environment beforehand.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is a required configuration field")
	}
	if cfg.IsProduction() && (cfg.SecretKey == "" || cfg.SecretKey == placeholderSecretKey) {
		return nil, errors.New("SECRET_KEY must be set in production")
	}
	if cfg.X.RedirectURI == "" {
		cfg.X.RedirectURI = strings.TrimRight(cfg.BaseURL, "/") + "/oauth/x/callback"
	}
	if cfg.GitHub.RedirectURI == "" {
		cfg.GitHub.RedirectURI = strings.TrimRight(cfg.BaseURL, "/") + "/auth/callback"
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("SECRET_KEY", placeholderSecretKey)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WEBHOOK_SECRET", PlaceholderWebhookSecret)
	v.SetDefault("ALLOW_UNSIGNED_WEBHOOKS", false)

	gh := DefaultGitHubConfig()
	v.SetDefault("GITHUB_CLIENT_ID", "")
	v.SetDefault("GITHUB_CLIENT_SECRET", "")
	v.SetDefault("GITHUB_REDIRECT_URI", "")
	v.SetDefault("GITHUB_API_BASE_URL", gh.APIBaseURL)
	v.SetDefault("GITHUB_OAUTH_BASE_URL", gh.OAuthBaseURL)
	v.SetDefault("GITHUB_DEVICE_SCOPE", gh.DeviceScope)
	v.SetDefault("DEVICE_FLOW_MAX_PENDING", gh.MaxPendingDevices)

	x := DefaultXConfig()
	v.SetDefault("TWITTER_API_KEY", "")
	v.SetDefault("TWITTER_API_SECRET", "")
	v.SetDefault("TWITTER_ACCESS_TOKEN", "")
	v.SetDefault("TWITTER_ACCESS_TOKEN_SECRET", "")
	v.SetDefault("TWITTER_CLIENT_ID", "")
	v.SetDefault("TWITTER_CLIENT_SECRET", "")
	v.SetDefault("TWITTER_REDIRECT_URI", "")
	v.SetDefault("TWITTER_API_BASE_URL", x.APIBaseURL)
	v.SetDefault("TWITTER_AUTH_URL", x.AuthURL)
	v.SetDefault("TWITTER_LEGACY_ENABLED", x.LegacyEnabled)

	llm := DefaultLLMConfig()
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("LLM_MODEL", llm.AnthropicModel)
	v.SetDefault("OPENAI_MODEL", llm.OpenAIModel)
	v.SetDefault("LLM_TIMEOUT", llm.Timeout)
	v.SetDefault("POST_PROMPT_PATH", llm.PromptPath)

	cr := DefaultCodeRabbitConfig()
	v.SetDefault("CODERABBIT_API_KEY", "")
	v.SetDefault("CODERABBIT_API_BASE", cr.APIBaseURL)
	v.SetDefault("CODERABBIT_PROMPT_PATH", cr.PromptPath)
	v.SetDefault("CODERABBIT_TIMEOUT", cr.Timeout)

	w := DefaultWorkerConfig()
	v.SetDefault("REPORT_WORKERS", w.Workers)
	v.SetDefault("REPORT_QUEUE_SIZE", w.QueueSize)
	v.SetDefault("REPORT_TASK_TIMEOUT", w.TaskTimeout)

	s := DefaultSchedulerConfig()
	v.SetDefault("SCHEDULER_ENABLED", s.Enabled)
	v.SetDefault("SCHEDULER_TIMEZONE", s.Timezone)
	v.SetDefault("SCHEDULER_PUBLISH_SPEC", s.PublishSpec)
	v.SetDefault("SCHEDULER_METRICS_SPEC", s.MetricsSpec)
}

// IsProduction reports whether the process runs in a production environment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// WebhookVerificationDisabled reports whether unsigned webhook deliveries
// may be accepted. It needs a missing or placeholder secret, a
// non-production environment and an explicit opt-in.
func (c *Config) WebhookVerificationDisabled() bool {
	unset := c.WebhookSecret == "" || c.WebhookSecret == PlaceholderWebhookSecret
	return unset && !c.IsProduction() && c.AllowUnsignedWebhooks
}
