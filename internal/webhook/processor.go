package webhook

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/generator"
	"github.com/sc2sm/sc2sm/internal/models"
)

// Store is the persistence used while ingesting commits
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SaveRepository(ctx context.Context, repo *models.Repository) error
	GetRepositoryByFullName(ctx context.Context, fullName string) (*models.Repository, error)
	SaveCommit(ctx context.Context, commit *models.Commit) (bool, error)
	GetCommitBySHA(ctx context.Context, sha string) (*models.Commit, error)
	MarkCommitProcessed(ctx context.Context, id int64, postGenerated bool, processingError string) error
	CreatePost(ctx context.Context, post *models.Post) error
}

// PostWriter writes the post text for a commit
type PostWriter interface {
	GeneratePost(ctx context.Context, commit generator.CommitData, tone string) string
}

// Processor turns pushed commits into draft posts
type Processor struct {
	store  Store
	writer PostWriter
	logger *logrus.Logger
}

func NewProcessor(store Store, writer PostWriter, logger *logrus.Logger) *Processor {
	return &Processor{
		store:  store,
		writer: writer,
		logger: logger,
	}
}

// HandlePush ingests every commit of a push and returns the number of
// drafts created. A failing commit is logged and skipped.
func (p *Processor) HandlePush(ctx context.Context, payload *PushPayload) (int, error) {
	if err := payload.Validate(); err != nil {
		return 0, err
	}

	logger := p.logger.WithFields(logrus.Fields{
		"repository": payload.Repository.FullName,
		"commits":    len(payload.Commits),
	})

	repo, err := p.resolveRepository(ctx, payload.Repository)
	if err != nil {
		return 0, err
	}
	if repo == nil {
		logger.WithField("owner", payload.Repository.OwnerLogin()).Info("No user owns this repository, ignoring push")
		return 0, nil
	}

	user, err := p.store.GetUser(ctx, repo.UserID)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, commit := range payload.Commits {
		created, err := p.Ingest(ctx, user, repo, commit)
		if err != nil {
			logger.WithError(err).WithField("sha", commit.ID).Error("Failed to process commit")
			continue
		}
		if created {
			processed++
		}
	}

	logger.WithField("processed", processed).Info("Processed push")
	return processed, nil
}

// resolveRepository returns the tracked repository, tracking it for the
// owner when that owner is a known user. It returns nil when nobody owns it.
func (p *Processor) resolveRepository(ctx context.Context, pushed PushRepository) (*models.Repository, error) {
	repo, err := p.store.GetRepositoryByFullName(ctx, pushed.FullName)
	if err == nil {
		return repo, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	owner, err := p.store.GetUserByUsername(ctx, pushed.OwnerLogin())
	if apperrors.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	repo = &models.Repository{
		GitHubID:    pushed.ID,
		Name:        pushed.Name,
		FullName:    pushed.FullName,
		Description: pushed.Description,
		HTMLURL:     pushed.HTMLURL,
		Language:    pushed.Language,
		IsPrivate:   pushed.Private,
		UserID:      owner.ID,
		Settings:    models.DefaultRepositorySettings(),
	}
	if err := p.store.SaveRepository(ctx, repo); err != nil {
		if apperrors.IsInvalidInput(err) {
			return p.store.GetRepositoryByFullName(ctx, pushed.FullName)
		}
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"repository": repo.FullName,
		"user_id":    owner.ID,
	}).Info("Started tracking repository from push")
	return repo, nil
}

// Ingest stores one commit and drafts a post for it. It reports false
// without error for merges, already ingested commits and commits the
// repository policy rejects.
func (p *Processor) Ingest(ctx context.Context, user *models.User, repo *models.Repository, c PushCommit) (bool, error) {
	logger := p.logger.WithFields(logrus.Fields{"sha": c.ID, "repository": repo.FullName})

	if c.IsMerge() {
		logger.Debug("Skipping merge commit")
		return false, nil
	}

	if _, err := p.store.GetCommitBySHA(ctx, c.ID); err == nil {
		logger.Debug("Skipping already ingested commit")
		return false, nil
	} else if !apperrors.IsNotFound(err) {
		return false, err
	}

	if !repo.AllowsCommit(c.Message) {
		logger.Debug("Repository policy rejected commit")
		return false, nil
	}

	commit := &models.Commit{
		GitHubID:       c.ID,
		Message:        c.Message,
		AuthorName:     c.Author.Name,
		AuthorEmail:    c.Author.Email,
		CommitterName:  c.Committer.Name,
		CommitterEmail: c.Committer.Email,
		HTMLURL:        c.URL,
		ChangedFiles:   len(c.Added) + len(c.Modified) + len(c.Removed),
		RepositoryID:   repo.ID,
		CommittedAt:    c.Timestamp,
	}
	if commit.CommittedAt.IsZero() {
		commit.CommittedAt = time.Now()
	}

	created, err := p.store.SaveCommit(ctx, commit)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	content := p.writer.GeneratePost(ctx, generator.CommitData{
		SHA:        c.ID,
		Author:     c.Author.Name,
		Message:    c.Message,
		Timestamp:  c.Timestamp,
		Added:      c.Added,
		Modified:   c.Modified,
		Removed:    c.Removed,
		Repository: repo.FullName,
	}, user.Tone())

	repoID, commitID := repo.ID, commit.ID
	post := &models.Post{
		Content:      content,
		Platform:     models.PlatformTwitter,
		Status:       models.PostStatusDraft,
		UserID:       user.ID,
		RepositoryID: &repoID,
		CommitID:     &commitID,
		Hashtags:     generator.ExtractHashtags(content),
		Mentions:     generator.ExtractMentions(content),
	}
	if err := p.store.CreatePost(ctx, post); err != nil {
		if markErr := p.store.MarkCommitProcessed(ctx, commit.ID, false, err.Error()); markErr != nil {
			logger.WithError(markErr).Error("Failed to record processing error")
		}
		return false, err
	}

	if err := p.store.MarkCommitProcessed(ctx, commit.ID, true, ""); err != nil {
		logger.WithError(err).Warn("Failed to mark commit processed")
	}

	logger.WithField("post_id", post.ID).Info("Drafted post for commit")
	return true, nil
}
