package config

import "time"

// XConfig holds X (Twitter) credentials. The API key pair and access token
// pair sign posting requests; the client id pair drives the OAuth 2.0 connect flow.
type XConfig struct {
	APIKey            string `mapstructure:"TWITTER_API_KEY"`
	APISecret         string `mapstructure:"TWITTER_API_SECRET"`
	AccessToken       string `mapstructure:"TWITTER_ACCESS_TOKEN"`
	AccessTokenSecret string `mapstructure:"TWITTER_ACCESS_TOKEN_SECRET"`
	ClientID          string `mapstructure:"TWITTER_CLIENT_ID"`
	ClientSecret      string `mapstructure:"TWITTER_CLIENT_SECRET"`
	RedirectURI       string `mapstructure:"TWITTER_REDIRECT_URI"`
	APIBaseURL        string `mapstructure:"TWITTER_API_BASE_URL"`
	AuthURL           string `mapstructure:"TWITTER_AUTH_URL"`
	LegacyEnabled     bool   `mapstructure:"TWITTER_LEGACY_ENABLED"`
}

// DefaultXConfig returns the default X configuration
func DefaultXConfig() *XConfig {
	return &XConfig{
		APIBaseURL:    "https://api.twitter.com",
		AuthURL:       "https://twitter.com/i/oauth2/authorize",
		LegacyEnabled: true,
	}
}

// LLMConfig holds completion API configuration
type LLMConfig struct {
	AnthropicAPIKey string        `mapstructure:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string        `mapstructure:"OPENAI_API_KEY"`
	AnthropicModel  string        `mapstructure:"LLM_MODEL"`
	OpenAIModel     string        `mapstructure:"OPENAI_MODEL"`
	Timeout         time.Duration `mapstructure:"LLM_TIMEOUT"`
	PromptPath      string        `mapstructure:"POST_PROMPT_PATH"`
}

// DefaultLLMConfig returns the default LLM configuration
func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		AnthropicModel: "claude-3-5-haiku-latest",
		OpenAIModel:    "gpt-4o-mini",
		Timeout:        60 * time.Second,
		PromptPath:     "prompts/post.md",
	}
}

// CodeRabbitConfig holds review-report API configuration
type CodeRabbitConfig struct {
	APIKey     string        `mapstructure:"CODERABBIT_API_KEY"`
	APIBaseURL string        `mapstructure:"CODERABBIT_API_BASE"`
	PromptPath string        `mapstructure:"CODERABBIT_PROMPT_PATH"`
	Timeout    time.Duration `mapstructure:"CODERABBIT_TIMEOUT"`
}

// DefaultCodeRabbitConfig returns the default CodeRabbit configuration
func DefaultCodeRabbitConfig() *CodeRabbitConfig {
	return &CodeRabbitConfig{
		APIBaseURL: "https://api.coderabbit.ai/api/v1",
		PromptPath: "crprompt.md",
		Timeout:    120 * time.Second,
	}
}
