package config

// GitHubConfig holds GitHub OAuth and API configuration
type GitHubConfig struct {
	ClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	ClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	RedirectURI  string `mapstructure:"GITHUB_REDIRECT_URI"`
	APIBaseURL   string `mapstructure:"GITHUB_API_BASE_URL"`
	OAuthBaseURL string `mapstructure:"GITHUB_OAUTH_BASE_URL"`
	DeviceScope  string `mapstructure:"GITHUB_DEVICE_SCOPE"`

	// Upper bound on device codes being polled at once
	MaxPendingDevices int `mapstructure:"DEVICE_FLOW_MAX_PENDING"`
}

// DefaultGitHubConfig returns the default GitHub configuration
func DefaultGitHubConfig() *GitHubConfig {
	return &GitHubConfig{
		APIBaseURL:   "https://api.github.com/",
		OAuthBaseURL: "https://github.com",
		DeviceScope:  "repo",

		MaxPendingDevices: 100,
	}
}
