package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/sc2sm/sc2sm/internal/config"
	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

const (
	xService = "X"
	xTimeout = 30 * time.Second
)

var xScopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}

// XAccount is the connected X profile
type XAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// XStatus describes a user's X connection
type XStatus struct {
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Scope     string     `json:"scope,omitempty"`
}

// XManager runs the X OAuth 2.0 PKCE connect flow
type XManager struct {
	config     oauth2.Config
	apiBaseURL string
	store      TokenStore
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time
}

func NewXManager(cfg *config.XConfig, store TokenStore, logger *logrus.Logger) *XManager {
	apiBase := strings.TrimRight(cfg.APIBaseURL, "/")
	return &XManager{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  apiBase + "/2/oauth2/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: xScopes,
		},
		apiBaseURL: apiBase,
		store:      store,
		httpClient: &http.Client{Timeout: xTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

// AuthURL returns the X consent page URL carrying the S256 challenge of verifier
func (m *XManager) AuthURL(state, verifier string) (string, error) {
	if m.config.ClientID == "" {
		return "", apperrors.NewConfigError("TWITTER_CLIENT_ID not configured")
	}
	return m.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

func (m *XManager) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if code == "" {
		return nil, apperrors.NewValidationError("Authorization code is required", nil)
	}
	tok, err := m.config.Exchange(withHTTPClient(ctx, m.httpClient), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, classify(xService, err)
	}
	return tok, nil
}

// Refresh returns a new token when tok has expired
func (m *XManager) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := m.config.TokenSource(withHTTPClient(ctx, m.httpClient), tok).Token()
	if err != nil {
		return nil, classify(xService, err)
	}
	return fresh, nil
}

// Identity returns the X account behind tok
func (m *XManager) Identity(ctx context.Context, tok *oauth2.Token) (*XAccount, error) {
	client := m.config.Client(withHTTPClient(ctx, m.httpClient), tok)
	client.Timeout = xTimeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.apiBaseURL+"/2/users/me", nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(xService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(xService, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewUpstreamError(xService, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Data XAccount `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.NewUpstreamError(xService, http.StatusBadGateway, fmt.Sprintf("invalid users/me response: %v", err))
	}
	return &payload.Data, nil
}

// Connect completes the flow and stores the token for userID. The returned
// account is never nil.
func (m *XManager) Connect(ctx context.Context, userID int64, code, verifier string) (*XAccount, error) {
	tok, err := m.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, err
	}

	// The token is usable without the profile; an unknown profile comes
	// back as an empty account.
	account, err := m.Identity(ctx, tok)
	if err != nil {
		m.logger.WithError(err).WithField("user_id", userID).Warn("Failed to read X profile after connect")
		account = &XAccount{}
	}

	if err := m.store.UpsertOAuthToken(ctx, toModelToken(models.PlatformTwitter, userID, tok)); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{"user_id": userID, "x_username": account.Username}).Info("Connected X account")
	return account, nil
}

// Disconnect forgets the user's X token
func (m *XManager) Disconnect(ctx context.Context, userID int64) error {
	err := m.store.DeleteOAuthToken(ctx, models.PlatformTwitter, userID)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	return nil
}

// Status reports the user's X connection, refreshing an expired token
// when a refresh token is stored.
func (m *XManager) Status(ctx context.Context, userID int64) (*XStatus, error) {
	stored, err := m.store.GetOAuthToken(ctx, models.PlatformTwitter, userID)
	if apperrors.IsNotFound(err) {
		return &XStatus{Connected: false}, nil
	} else if err != nil {
		return nil, err
	}

	if stored.Expired(m.now()) {
		if stored.RefreshToken == "" {
			return &XStatus{Connected: false, ExpiresAt: stored.ExpiresAt, Scope: stored.Scope}, nil
		}

		fresh, err := m.Refresh(ctx, fromModelToken(stored))
		if err != nil {
			m.logger.WithError(err).WithField("user_id", userID).Warn("Failed to refresh X token")
			return &XStatus{Connected: false, ExpiresAt: stored.ExpiresAt, Scope: stored.Scope}, nil
		}
		refreshed := toModelToken(models.PlatformTwitter, userID, fresh)
		if refreshed.Scope == "" {
			refreshed.Scope = stored.Scope
		}
		if err := m.store.UpsertOAuthToken(ctx, refreshed); err != nil {
			return nil, err
		}
		stored = refreshed
	}

	return &XStatus{Connected: true, ExpiresAt: stored.ExpiresAt, Scope: stored.Scope}, nil
}
