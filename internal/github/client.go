package github

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
)

const (
	defaultTimeout  = 30 * time.Second
	commitsPerPage  = 100
	maxListedCommit = 100
)

// Client wraps go-github for the calls the service needs
type Client struct {
	gh     *github.Client
	logger *logrus.Logger

	baseURL        string
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// ClientOption allows configuring the GitHub client
type ClientOption func(*Client)

// WithRetryConfig configures retry behavior
func WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialBackoff = initialBackoff
		c.maxBackoff = maxBackoff
	}
}

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a client authenticating with the given token
func NewClient(token string, logger *logrus.Logger, opts ...ClientOption) (*Client, error) {
	client := &Client{
		logger:         logger,
		timeout:        defaultTimeout,
		maxRetries:     3,
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = client.timeout

	client.gh = github.NewClient(httpClient)
	if client.baseURL != "" {
		base := client.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid GitHub API base URL: " + client.baseURL)
		}
		client.gh.BaseURL = u
	}
	if client.maxRetries < 1 {
		client.maxRetries = 1
	}

	return client, nil
}

// do runs call with exponential backoff on server and connection errors
func (c *Client) do(ctx context.Context, op string, call func() (*github.Response, error)) error {
	backoff := c.initialBackoff
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		resp, err := call()
		if err == nil {
			if resp != nil && resp.Rate.Limit > 0 {
				c.logger.WithFields(logrus.Fields{
					"op":                   op,
					"rate_limit_remaining": resp.Rate.Remaining,
				}).Debug("GitHub API call succeeded")
			}
			return nil
		}
		lastErr = err

		wait := backoff
		var abuseErr *github.AbuseRateLimitError
		if errors.As(err, &abuseErr) && abuseErr.RetryAfter != nil && *abuseErr.RetryAfter <= c.maxBackoff {
			wait = *abuseErr.RetryAfter
		} else if !retryable(resp, err) {
			return err
		}

		if attempt == c.maxRetries-1 {
			break
		}

		c.logger.WithError(err).WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"wait":    wait,
		}).Warn("GitHub API call failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff = time.Duration(math.Min(float64(backoff*2), float64(c.maxBackoff)))
	}

	return lastErr
}

// CurrentUser returns the authenticated account. When the profile hides the
// email the primary verified address is used.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u *github.User
	err := c.do(ctx, "users.get", func() (resp *github.Response, err error) {
		u, resp, err = c.gh.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		return nil, translateError(err, "user", "me")
	}

	user := &User{
		ID:        u.GetID(),
		Login:     u.GetLogin(),
		Name:      u.GetName(),
		Email:     u.GetEmail(),
		AvatarURL: u.GetAvatarURL(),
	}
	if user.Email != "" {
		return user, nil
	}

	var emails []*github.UserEmail
	err = c.do(ctx, "users.list_emails", func() (resp *github.Response, err error) {
		emails, resp, err = c.gh.Users.ListEmails(ctx, nil)
		return resp, err
	})
	if err != nil {
		c.logger.WithError(err).WithField("login", user.Login).Warn("Failed to list GitHub emails")
		return user, nil
	}
	user.Email = primaryEmail(emails)
	return user, nil
}

func primaryEmail(emails []*github.UserEmail) string {
	fallback := ""
	for _, e := range emails {
		if e.GetPrimary() && e.GetVerified() {
			return e.GetEmail()
		}
		if fallback == "" && e.GetVerified() {
			fallback = e.GetEmail()
		}
	}
	return fallback
}

// GetRepository gets repository information from GitHub
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	if owner == "" || name == "" {
		return nil, apperrors.NewValidationError("owner and name cannot be empty", nil)
	}

	var r *github.Repository
	err := c.do(ctx, "repositories.get", func() (resp *github.Response, err error) {
		r, resp, err = c.gh.Repositories.Get(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		return nil, translateError(err, "repository", owner+"/"+name)
	}

	return &Repository{
		ID:          r.GetID(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		HTMLURL:     r.GetHTMLURL(),
		Language:    r.GetLanguage(),
		Private:     r.GetPrivate(),
		Owner:       r.GetOwner().GetLogin(),
	}, nil
}

// ListCommits returns up to 100 commits made after since, newest first
func (c *Client) ListCommits(ctx context.Context, owner, name string, since time.Time) ([]*Commit, error) {
	if owner == "" || name == "" {
		return nil, apperrors.NewValidationError("owner and name cannot be empty", nil)
	}

	logger := c.logger.WithFields(logrus.Fields{
		"owner": owner,
		"repo":  name,
		"since": since,
	})

	opts := &github.CommitsListOptions{
		Since:       since,
		ListOptions: github.ListOptions{PerPage: commitsPerPage},
	}

	var result []*Commit
	for {
		var page []*github.RepositoryCommit
		var next int
		err := c.do(ctx, "repositories.list_commits", func() (*github.Response, error) {
			commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, opts)
			page = commits
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			logger.WithError(err).Error("Failed to list commits")
			return nil, translateError(err, "repository", owner+"/"+name)
		}

		for _, rc := range page {
			result = append(result, convertCommit(rc))
		}
		if next == 0 || len(result) >= maxListedCommit {
			break
		}
		opts.Page = next
	}

	if len(result) > maxListedCommit {
		result = result[:maxListedCommit]
	}
	logger.WithField("commits", len(result)).Debug("Listed commits")
	return result, nil
}

// GetCommit returns a commit with its file list and line counters
func (c *Client) GetCommit(ctx context.Context, owner, name, sha string) (*Commit, error) {
	var rc *github.RepositoryCommit
	err := c.do(ctx, "repositories.get_commit", func() (resp *github.Response, err error) {
		rc, resp, err = c.gh.Repositories.GetCommit(ctx, owner, name, sha, nil)
		return resp, err
	})
	if err != nil {
		return nil, translateError(err, "commit", sha)
	}
	return convertCommit(rc), nil
}

func convertCommit(rc *github.RepositoryCommit) *Commit {
	inner := rc.GetCommit()
	commit := &Commit{
		SHA:            rc.GetSHA(),
		Message:        inner.GetMessage(),
		AuthorName:     inner.GetAuthor().GetName(),
		AuthorEmail:    inner.GetAuthor().GetEmail(),
		CommitterName:  inner.GetCommitter().GetName(),
		CommitterEmail: inner.GetCommitter().GetEmail(),
		AuthorDate:     inner.GetAuthor().GetDate().Time,
		HTMLURL:        rc.GetHTMLURL(),
		Additions:      rc.GetStats().GetAdditions(),
		Deletions:      rc.GetStats().GetDeletions(),
		ChangedFiles:   len(rc.Files),
	}
	for _, p := range rc.Parents {
		commit.Parents = append(commit.Parents, p.GetSHA())
	}
	for _, f := range rc.Files {
		switch f.GetStatus() {
		case "added":
			commit.Added = append(commit.Added, f.GetFilename())
		case "removed":
			commit.Removed = append(commit.Removed, f.GetFilename())
		default:
			commit.Modified = append(commit.Modified, f.GetFilename())
		}
	}
	return commit
}
