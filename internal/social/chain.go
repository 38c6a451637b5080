package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/sirupsen/logrus"

	"github.com/sc2sm/sc2sm/internal/config"
	"github.com/sc2sm/sc2sm/internal/models"
)

const (
	requestTimeout = 30 * time.Second

	reasonSameToken    = "publisher disabled: access token equals access token secret"
	reasonMissingCreds = "publisher disabled: X credentials are not configured"
)

// Attempt records one publisher try
type Attempt struct {
	Publisher string `json:"publisher"`
	Error     string `json:"error,omitempty"`
}

// Result describes the outcome of Chain.Post
type Result struct {
	PostID    string    `json:"post_id,omitempty"`
	Publisher string    `json:"publisher,omitempty"`
	Content   string    `json:"content"`
	Attempts  []Attempt `json:"attempts"`
	Reason    string    `json:"reason,omitempty"`
}

// Chain tries each publisher in order until one succeeds
type Chain struct {
	publishers     []Publisher
	client         *http.Client
	baseURL        string
	disabledReason string
	logger         *logrus.Logger
}

// NewChain builds the v2 publisher and, when legacy posting is enabled, the
// v1.1 publisher. Both sign requests with the configured OAuth 1.0a
// credentials. Invalid credentials produce a permanently disabled chain.
func NewChain(cfg *config.XConfig, logger *logrus.Logger) *Chain {
	c := &Chain{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		logger:  logger,
	}

	switch {
	case cfg.APIKey == "" || cfg.APISecret == "" || cfg.AccessToken == "" || cfg.AccessTokenSecret == "":
		c.disabledReason = reasonMissingCreds
	case cfg.AccessToken == cfg.AccessTokenSecret:
		c.disabledReason = reasonSameToken
	}
	if c.disabledReason != "" {
		logger.WithField("reason", c.disabledReason).Warn("X publisher disabled")
		return c
	}

	oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	c.client = oauthConfig.Client(context.Background(), token)
	c.client.Timeout = requestTimeout

	c.publishers = append(c.publishers, &v2Publisher{client: c.client, baseURL: c.baseURL})
	if cfg.LegacyEnabled {
		c.publishers = append(c.publishers, &v1Publisher{client: c.client, baseURL: c.baseURL})
	}
	return c
}

// NewChainWithPublishers creates an enabled chain over explicit publishers
func NewChainWithPublishers(logger *logrus.Logger, publishers ...Publisher) *Chain {
	return &Chain{publishers: publishers, logger: logger}
}

// Enabled reports whether the chain can publish at all
func (c *Chain) Enabled() bool {
	return c.disabledReason == "" && len(c.publishers) > 0
}

// DisabledReason returns why the chain is disabled, or ""
func (c *Chain) DisabledReason() string {
	return c.disabledReason
}

// Post truncates content and tries each publisher in order. It reports
// success with the platform post id and never returns an error.
func (c *Chain) Post(ctx context.Context, content string) (Result, bool) {
	result := Result{Content: Truncate(content)}

	if !c.Enabled() {
		result.Reason = c.disabledReason
		if result.Reason == "" {
			result.Reason = reasonMissingCreds
		}
		return result, false
	}

	for _, publisher := range c.publishers {
		id, err := c.attempt(ctx, publisher, result.Content)
		if err != nil {
			c.logger.WithError(err).WithField("publisher", publisher.Name()).Warn("Publish attempt failed")
			result.Attempts = append(result.Attempts, Attempt{Publisher: publisher.Name(), Error: err.Error()})
			continue
		}

		result.Attempts = append(result.Attempts, Attempt{Publisher: publisher.Name()})
		result.PostID = id
		result.Publisher = publisher.Name()
		c.logger.WithFields(logrus.Fields{
			"publisher": publisher.Name(),
			"post_id":   id,
		}).Info("Published post")
		return result, true
	}

	result.Reason = summarize(result.Attempts)
	return result, false
}

func (c *Chain) attempt(ctx context.Context, publisher Publisher, content string) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publisher panicked: %v", r)
		}
	}()
	return publisher.Post(ctx, content)
}

func (c *Chain) unavailable() error {
	if c.disabledReason != "" {
		return errors.New(c.disabledReason)
	}
	return errors.New("X client is not configured")
}

func summarize(attempts []Attempt) string {
	reasons := make([]string, 0, len(attempts))
	for _, a := range attempts {
		reasons = append(reasons, a.Publisher+": "+a.Error)
	}
	return strings.Join(reasons, "; ")
}

// Metrics reads the public engagement counters of a published post.
func (c *Chain) Metrics(ctx context.Context, postID string) (models.PostMetrics, error) {
	if c.client == nil {
		return models.PostMetrics{}, c.unavailable()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/2/tweets/"+postID+"?tweet.fields=public_metrics", nil)
	if err != nil {
		return models.PostMetrics{}, fmt.Errorf("failed to create request: %w", err)
	}

	var resp struct {
		Data struct {
			PublicMetrics struct {
				LikeCount       int `json:"like_count"`
				RetweetCount    int `json:"retweet_count"`
				ReplyCount      int `json:"reply_count"`
				ImpressionCount int `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := doJSON(c.client, req, &resp); err != nil {
		return models.PostMetrics{}, err
	}

	m := resp.Data.PublicMetrics
	return models.PostMetrics{
		Likes:    m.LikeCount,
		Retweets: m.RetweetCount,
		Comments: m.ReplyCount,
		Views:    m.ImpressionCount,
	}, nil
}

// Delete removes a published post.
func (c *Chain) Delete(ctx context.Context, postID string) error {
	if c.client == nil {
		return c.unavailable()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/2/tweets/"+postID, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	var resp struct {
		Data struct {
			Deleted bool `json:"deleted"`
		} `json:"data"`
	}
	if err := doJSON(c.client, req, &resp); err != nil {
		return err
	}
	if !resp.Data.Deleted {
		return fmt.Errorf("X did not delete post %s", postID)
	}
	return nil
}

// Account is the X identity behind the configured credentials
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// VerifyCredentials returns the account the credentials belong to.
func (c *Chain) VerifyCredentials(ctx context.Context) (*Account, error) {
	if c.client == nil {
		return nil, c.unavailable()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/2/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var resp struct {
		Data Account `json:"data"`
	}
	if err := doJSON(c.client, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
