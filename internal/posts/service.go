package posts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/generator"
	"github.com/sc2sm/sc2sm/internal/models"
	"github.com/sc2sm/sc2sm/internal/social"
)

const (
	defaultLimit  = 20
	maxLimit      = 100
	metricsWindow = 7 * 24 * time.Hour
	metricsBatch  = 100
)

// Store is the persistence used by the posts service
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	ListPosts(ctx context.Context, filter models.PostFilter) ([]*models.Post, int64, error)
	UpdatePostContent(ctx context.Context, id int64, content string) error
	MarkPostPublished(ctx context.Context, id int64, platformPostID string, at time.Time) error
	MarkPostFailed(ctx context.Context, id int64, message string) error
	SchedulePost(ctx context.Context, id int64, at time.Time) error
	DeletePost(ctx context.Context, id int64) error
	ListDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error)
	ListPublishedPosts(ctx context.Context, since time.Time, limit int) ([]*models.Post, error)
	UpdatePostMetrics(ctx context.Context, id int64, metrics models.PostMetrics) error
	CountPublishedSince(ctx context.Context, userID int64, since time.Time) (int, error)
	MarkCommitPublished(ctx context.Context, id int64) error
}

// Publisher sends posts to X and reads them back
type Publisher interface {
	Enabled() bool
	Post(ctx context.Context, content string) (social.Result, bool)
	Metrics(ctx context.Context, postID string) (models.PostMetrics, error)
	Delete(ctx context.Context, postID string) error
}

// ListResult is one page of posts
type ListResult struct {
	Posts  []*models.Post `json:"posts"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type Service struct {
	store     Store
	publisher Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewService(store Store, publisher Publisher, logger *logrus.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a new draft for userID
func (s *Service) Create(ctx context.Context, userID int64, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("Content is required", nil)
	}

	post := &models.Post{
		Content:  content,
		Platform: models.PlatformTwitter,
		Status:   models.PostStatusDraft,
		UserID:   userID,
		Hashtags: generator.ExtractHashtags(content),
		Mentions: generator.ExtractMentions(content),
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Get returns a post owned by userID. Posts of other users are not found.
func (s *Service) Get(ctx context.Context, userID, id int64) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, apperrors.NewResourceNotFoundError("post", id)
	}
	return post, nil
}

func (s *Service) List(ctx context.Context, filter models.PostFilter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	switch filter.Status {
	case "", models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusPublished, models.PostStatusFailed:
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("Invalid status: %s", filter.Status), nil)
	}

	posts, total, err := s.store.ListPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Posts: posts, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Edit replaces the content of an unpublished post and returns it to draft
func (s *Service) Edit(ctx context.Context, userID, id int64, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("Content is required", nil)
	}

	post, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := post.CanPublish(); err != nil {
		return nil, apperrors.NewValidationError("Cannot edit a published post", err)
	}

	if err := s.store.UpdatePostContent(ctx, id, content); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, id)
}

// Publish sends a post to X now
func (s *Service) Publish(ctx context.Context, userID, id int64) (*models.Post, error) {
	post, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := post.CanPublish(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}
	if err := s.checkDailyLimit(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.publish(ctx, post); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, id)
}

func (s *Service) checkDailyLimit(ctx context.Context, userID int64) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	count, err := s.store.CountPublishedSince(ctx, userID, s.now().Add(-24*time.Hour))
	if err != nil {
		return err
	}
	if count >= user.DailyLimit() {
		return apperrors.NewRateLimitError(fmt.Sprintf("Daily post limit reached (%d per day)", user.DailyLimit()))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, post *models.Post) error {
	logger := s.logger.WithFields(logrus.Fields{"post_id": post.ID, "user_id": post.UserID})

	result, ok := s.publisher.Post(ctx, post.Content)
	if !ok {
		if err := s.store.MarkPostFailed(ctx, post.ID, result.Reason); err != nil {
			logger.WithError(err).Error("Failed to record publish failure")
		}
		logger.WithField("reason", result.Reason).Warn("Failed to publish post")
		return apperrors.New(apperrors.ErrUpstream, "Failed to publish post: "+result.Reason, nil)
	}

	if err := s.store.MarkPostPublished(ctx, post.ID, result.PostID, s.now()); err != nil {
		return err
	}
	if post.CommitID != nil {
		if err := s.store.MarkCommitPublished(ctx, *post.CommitID); err != nil {
			logger.WithError(err).Warn("Failed to mark commit published")
		}
	}

	logger.WithFields(logrus.Fields{
		"platform_post_id": result.PostID,
		"publisher":        result.Publisher,
	}).Info("Published post")
	return nil
}

// Schedule queues a post for publication at a future time
func (s *Service) Schedule(ctx context.Context, userID, id int64, at time.Time) (*models.Post, error) {
	if !at.After(s.now()) {
		return nil, apperrors.NewValidationError("Scheduled time must be in the future", nil)
	}

	post, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := post.CanPublish(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}

	if err := s.store.SchedulePost(ctx, id, at.UTC()); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, id)
}

// Delete removes a post. A published post is also removed from X when possible.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	post, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if post.Status == models.PostStatusPublished && post.PlatformPostID != "" && s.publisher.Enabled() {
		if err := s.publisher.Delete(ctx, post.PlatformPostID); err != nil {
			s.logger.WithError(err).WithField("post_id", id).Warn("Failed to delete post from X")
		}
	}
	return s.store.DeletePost(ctx, id)
}

// PublishDue publishes scheduled posts whose time has come and returns how
// many were published. Posts of users at their daily limit stay scheduled.
func (s *Service) PublishDue(ctx context.Context) (int, error) {
	due, err := s.store.ListDuePosts(ctx, s.now())
	if err != nil {
		return 0, err
	}

	published := 0
	for _, post := range due {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		logger := s.logger.WithField("post_id", post.ID)

		if err := s.checkDailyLimit(ctx, post.UserID); err != nil {
			logger.WithError(err).Debug("Leaving scheduled post for later")
			continue
		}
		if err := s.publish(ctx, post); err != nil {
			logger.WithError(err).Warn("Scheduled post failed")
			continue
		}
		published++
	}
	return published, nil
}

// RefreshMetrics reads engagement counters of posts published in the past
// week and returns how many were updated.
func (s *Service) RefreshMetrics(ctx context.Context) (int, error) {
	if !s.publisher.Enabled() {
		return 0, nil
	}

	posts, err := s.store.ListPublishedPosts(ctx, s.now().Add(-metricsWindow), metricsBatch)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, post := range posts {
		if post.PlatformPostID == "" {
			continue
		}
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}

		metrics, err := s.publisher.Metrics(ctx, post.PlatformPostID)
		if err != nil {
			s.logger.WithError(err).WithField("post_id", post.ID).Warn("Failed to fetch post metrics")
			continue
		}
		if err := s.store.UpdatePostMetrics(ctx, post.ID, metrics); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
