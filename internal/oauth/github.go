package oauth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/sc2sm/sc2sm/internal/config"
	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/github"
	"github.com/sc2sm/sc2sm/internal/models"
)

const githubService = "GitHub"

var githubLoginScopes = []string{"repo", "user:email"}

// TokenStore persists users and their OAuth tokens
type TokenStore interface {
	UpsertUserByGitHubID(ctx context.Context, user *models.User) error
	UpsertOAuthToken(ctx context.Context, token *models.OAuthToken) error
	GetOAuthToken(ctx context.Context, platform string, userID int64) (*models.OAuthToken, error)
	DeleteOAuthToken(ctx context.Context, platform string, userID int64) error
}

// IdentityFunc resolves the GitHub account behind an access token
type IdentityFunc func(ctx context.Context, accessToken string) (*github.User, error)

// GitHubManager runs the GitHub web login
type GitHubManager struct {
	config     oauth2.Config
	store      TokenStore
	identity   IdentityFunc
	httpClient *http.Client
	logger     *logrus.Logger
}

// GitHubEndpoint returns the OAuth endpoint rooted at baseURL, e.g. https://github.com
func GitHubEndpoint(baseURL string) oauth2.Endpoint {
	base := strings.TrimRight(baseURL, "/")
	return oauth2.Endpoint{
		AuthURL:       base + "/login/oauth/authorize",
		TokenURL:      base + "/login/oauth/access_token",
		DeviceAuthURL: base + "/login/device/code",
		AuthStyle:     oauth2.AuthStyleInParams,
	}
}

func NewGitHubManager(cfg *config.GitHubConfig, store TokenStore, logger *logrus.Logger) *GitHubManager {
	m := &GitHubManager{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     GitHubEndpoint(cfg.OAuthBaseURL),
			Scopes:       githubLoginScopes,
		},
		store:      store,
		httpClient: &http.Client{Timeout: tokenTimeout},
		logger:     logger,
	}
	m.identity = func(ctx context.Context, accessToken string) (*github.User, error) {
		client, err := github.NewClient(accessToken, logger, github.WithBaseURL(cfg.APIBaseURL), github.WithTimeout(tokenTimeout))
		if err != nil {
			return nil, err
		}
		return client.CurrentUser(ctx)
	}
	return m
}

// WithIdentity replaces how tokens are resolved to accounts
func (m *GitHubManager) WithIdentity(identity IdentityFunc) *GitHubManager {
	m.identity = identity
	return m
}

// AuthURL returns the GitHub consent page URL for state
func (m *GitHubManager) AuthURL(state string) (string, error) {
	if m.config.ClientID == "" {
		return "", apperrors.NewConfigError("GITHUB_CLIENT_ID not configured")
	}
	return m.config.AuthCodeURL(state), nil
}

// Exchange trades an authorization code for a token
func (m *GitHubManager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, apperrors.NewValidationError("Authorization code is required", nil)
	}
	tok, err := m.config.Exchange(withHTTPClient(ctx, m.httpClient), code)
	if err != nil {
		return nil, classify(githubService, err)
	}
	return tok, nil
}

// Identity returns the account behind an access token
func (m *GitHubManager) Identity(ctx context.Context, accessToken string) (*github.User, error) {
	return m.identity(ctx, accessToken)
}

// Login exchanges code and records the user and their token
func (m *GitHubManager) Login(ctx context.Context, code string) (*models.User, error) {
	tok, err := m.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return m.LoginWithToken(ctx, tok)
}

// LoginWithToken records the user behind an already issued token
func (m *GitHubManager) LoginWithToken(ctx context.Context, tok *oauth2.Token) (*models.User, error) {
	account, err := m.Identity(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		GitHubID:    account.ID,
		Username:    account.Login,
		Email:       account.Email,
		Name:        account.Name,
		AvatarURL:   account.AvatarURL,
		AccessToken: tok.AccessToken,
	}
	if err := m.store.UpsertUserByGitHubID(ctx, user); err != nil {
		return nil, err
	}

	if err := m.store.UpsertOAuthToken(ctx, toModelToken(models.PlatformGitHub, user.ID, tok)); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User logged in with GitHub")
	return user, nil
}

func toModelToken(platform string, userID int64, tok *oauth2.Token) *models.OAuthToken {
	t := &models.OAuthToken{
		Platform:     platform,
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		t.ExpiresAt = &expiry
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scope = scope
	}
	return t
}

func fromModelToken(t *models.OAuthToken) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiresAt != nil {
		tok.Expiry = *t.ExpiresAt
	}
	return tok
}

