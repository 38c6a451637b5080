package github

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
	"github.com/sc2sm/sc2sm/internal/utils"
	"github.com/sc2sm/sc2sm/internal/webhook"
)

const defaultSyncWindow = 7 * 24 * time.Hour

// API is the GitHub surface used for tracking and syncing
type API interface {
	GetRepository(ctx context.Context, owner, name string) (*Repository, error)
	ListCommits(ctx context.Context, owner, name string, since time.Time) ([]*Commit, error)
	GetCommit(ctx context.Context, owner, name, sha string) (*Commit, error)
}

// ClientFactory builds an API client for a user's access token
type ClientFactory func(token string) (API, error)

// RepositoryStore is the persistence used by RepositoryService
type RepositoryStore interface {
	SaveRepository(ctx context.Context, repo *models.Repository) error
	GetRepository(ctx context.Context, id int64) (*models.Repository, error)
	GetRepositoryByFullName(ctx context.Context, fullName string) (*models.Repository, error)
	GetUserRepositoryByFullName(ctx context.Context, userID int64, fullName string) (*models.Repository, error)
	ListRepositories(ctx context.Context, userID int64) ([]*models.Repository, error)
	UpdateRepositorySettings(ctx context.Context, id int64, settings models.RepositorySettings) error
	DeleteRepository(ctx context.Context, id int64) error
	MarkRepositorySynced(ctx context.Context, id int64, at time.Time) error
	ListCommits(ctx context.Context, repoID int64, limit, offset int) ([]*models.Commit, int64, error)
}

// Ingester stores a commit and drafts its post
type Ingester interface {
	Ingest(ctx context.Context, user *models.User, repo *models.Repository, commit webhook.PushCommit) (bool, error)
}

// SyncResult summarizes one repository sync
type SyncResult struct {
	RepositoryID int64     `json:"repository_id"`
	Fetched      int       `json:"fetched"`
	Processed    int       `json:"processed"`
	SyncedAt     time.Time `json:"synced_at"`
}

// CommitPage is one page of stored commits
type CommitPage struct {
	Commits []*models.Commit `json:"commits"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type RepositoryService struct {
	store     RepositoryStore
	newClient ClientFactory
	ingester  Ingester
	logger    *logrus.Logger
}

func NewRepositoryService(store RepositoryStore, newClient ClientFactory, ingester Ingester, logger *logrus.Logger) *RepositoryService {
	return &RepositoryService{
		store:     store,
		newClient: newClient,
		ingester:  ingester,
		logger:    logger,
	}
}

// Track starts monitoring a repository for the user. The reference may be
// owner/name or a GitHub URL.
func (s *RepositoryService) Track(ctx context.Context, user *models.User, ref string) (*models.Repository, error) {
	owner, name, err := utils.ParseRepoURL(ref)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}
	fullName := owner + "/" + name

	if _, err := s.store.GetUserRepositoryByFullName(ctx, user.ID, fullName); err == nil {
		return nil, apperrors.NewValidationError("Repository is already tracked", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	client, err := s.newClient(user.AccessToken)
	if err != nil {
		return nil, err
	}
	info, err := client.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	repo := &models.Repository{
		GitHubID:    info.ID,
		Name:        info.Name,
		FullName:    info.FullName,
		Description: info.Description,
		HTMLURL:     info.HTMLURL,
		Language:    info.Language,
		IsPrivate:   info.Private,
		UserID:      user.ID,
		Settings:    models.DefaultRepositorySettings(),
	}
	if repo.FullName == "" {
		repo.FullName = fullName
	}
	if err := s.store.SaveRepository(ctx, repo); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"repository": repo.FullName,
		"user_id":    user.ID,
	}).Info("Started tracking repository")
	return repo, nil
}

// Get returns a repository owned by userID
func (s *RepositoryService) Get(ctx context.Context, userID, id int64) (*models.Repository, error) {
	repo, err := s.store.GetRepository(ctx, id)
	if err != nil {
		return nil, err
	}
	if repo.UserID != userID {
		return nil, apperrors.NewResourceNotFoundError("repository", id)
	}
	return repo, nil
}

func (s *RepositoryService) List(ctx context.Context, userID int64) ([]*models.Repository, error) {
	return s.store.ListRepositories(ctx, userID)
}

// Untrack stops monitoring a repository and removes its commits
func (s *RepositoryService) Untrack(ctx context.Context, userID, id int64) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeleteRepository(ctx, id)
}

// UpdateSettings replaces the posting policy of a repository
func (s *RepositoryService) UpdateSettings(ctx context.Context, userID, id int64, settings models.RepositorySettings) (*models.Repository, error) {
	repo, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if settings.MinCommitMessageLength < 0 {
		return nil, apperrors.NewValidationError("min_commit_message_length must not be negative", nil)
	}
	if err := s.store.UpdateRepositorySettings(ctx, id, settings); err != nil {
		return nil, err
	}
	repo.Settings = settings
	return repo, nil
}

// Commits lists the stored commits of a repository, newest first
func (s *RepositoryService) Commits(ctx context.Context, userID, id int64, limit, offset int) (*CommitPage, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	commits, total, err := s.store.ListCommits(ctx, id, limit, offset)
	if err != nil {
		return nil, err
	}
	return &CommitPage{Commits: commits, Total: total, Limit: limit, Offset: offset}, nil
}

// Sync pulls commits made since the last sync (or the past week) and
// ingests them oldest first through the webhook path.
func (s *RepositoryService) Sync(ctx context.Context, user *models.User, id int64) (*SyncResult, error) {
	repo, err := s.Get(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	since := now.Add(-defaultSyncWindow)
	if repo.LastSyncedAt != nil {
		since = *repo.LastSyncedAt
	}

	logger := s.logger.WithFields(logrus.Fields{
		"repository": repo.FullName,
		"since":      since,
	})

	client, err := s.newClient(user.AccessToken)
	if err != nil {
		return nil, err
	}

	owner, name, err := utils.ParseRepoURL(repo.FullName)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("stored repository name is invalid: %s", repo.FullName), err)
	}

	commits, err := client.ListCommits(ctx, owner, name, since)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].AuthorDate.Before(commits[j].AuthorDate)
	})

	result := &SyncResult{RepositoryID: repo.ID, Fetched: len(commits)}
	for _, listed := range commits {
		commit := listed
		if len(listed.Parents) <= 1 {
			if detailed, err := client.GetCommit(ctx, owner, name, listed.SHA); err == nil {
				commit = detailed
			} else {
				logger.WithError(err).WithField("sha", listed.SHA).Warn("Failed to fetch commit details")
			}
		}

		created, err := s.ingester.Ingest(ctx, user, repo, toPushCommit(commit))
		if err != nil {
			logger.WithError(err).WithField("sha", commit.SHA).Error("Failed to ingest commit")
			continue
		}
		if created {
			result.Processed++
		}
	}

	if err := s.store.MarkRepositorySynced(ctx, repo.ID, now); err != nil {
		return nil, err
	}
	result.SyncedAt = now

	logger.WithFields(logrus.Fields{
		"fetched":   result.Fetched,
		"processed": result.Processed,
	}).Info("Synced repository")
	return result, nil
}

func toPushCommit(c *Commit) webhook.PushCommit {
	parents := make([]webhook.ParentRef, 0, len(c.Parents))
	for _, p := range c.Parents {
		parents = append(parents, webhook.ParentRef(p))
	}
	return webhook.PushCommit{
		ID:        c.SHA,
		Message:   c.Message,
		Timestamp: c.AuthorDate,
		URL:       c.HTMLURL,
		Author:    webhook.PushUser{Name: c.AuthorName, Email: c.AuthorEmail},
		Committer: webhook.PushUser{Name: c.CommitterName, Email: c.CommitterEmail},
		Added:     c.Added,
		Modified:  c.Modified,
		Removed:   c.Removed,
		Parents:   parents,
	}
}

// NewClientFactory returns a ClientFactory bound to an API base URL
func NewClientFactory(baseURL string, logger *logrus.Logger, opts ...ClientOption) ClientFactory {
	return func(token string) (API, error) {
		if token == "" {
			return nil, apperrors.NewUnauthorizedError("GitHub account is not connected", nil)
		}
		client, err := NewClient(token, logger, append([]ClientOption{WithBaseURL(baseURL)}, opts...)...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
