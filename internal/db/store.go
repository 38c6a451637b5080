package db

import (
	"context"
	"time"

	"github.com/sc2sm/sc2sm/internal/models"
)

// Store defines the interface for database operations
type Store interface {
	Ping(ctx context.Context) error

	// User operations
	UpsertUserByGitHubID(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserPreferences(ctx context.Context, id int64, prefs models.UserPreferences) (*models.User, error)

	// OAuth token operations
	UpsertOAuthToken(ctx context.Context, token *models.OAuthToken) error
	GetOAuthToken(ctx context.Context, platform string, userID int64) (*models.OAuthToken, error)
	DeleteOAuthToken(ctx context.Context, platform string, userID int64) error

	// Repository operations
	SaveRepository(ctx context.Context, repo *models.Repository) error
	GetRepository(ctx context.Context, id int64) (*models.Repository, error)
	GetRepositoryByFullName(ctx context.Context, fullName string) (*models.Repository, error)
	GetUserRepositoryByFullName(ctx context.Context, userID int64, fullName string) (*models.Repository, error)
	ListRepositories(ctx context.Context, userID int64) ([]*models.Repository, error)
	UpdateRepositorySettings(ctx context.Context, id int64, settings models.RepositorySettings) error
	DeleteRepository(ctx context.Context, id int64) error
	MarkRepositorySynced(ctx context.Context, id int64, at time.Time) error

	// Commit operations
	SaveCommit(ctx context.Context, commit *models.Commit) (bool, error)
	GetCommitBySHA(ctx context.Context, sha string) (*models.Commit, error)
	ListCommits(ctx context.Context, repoID int64, limit, offset int) ([]*models.Commit, int64, error)
	MarkCommitProcessed(ctx context.Context, id int64, postGenerated bool, processingError string) error
	MarkCommitPublished(ctx context.Context, id int64) error

	// Post operations
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

	// Report operations
	CreateReport(ctx context.Context, report *models.Report) error
	CompleteReport(ctx context.Context, id int64, summary models.ReportSummary) error
	FailReport(ctx context.Context, id int64, message string) error
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	ListReports(ctx context.Context, filter models.ReportFilter) ([]*models.Report, int64, error)
	BottomReports(ctx context.Context, n int) ([]*models.Report, error)
	SaveReportMetrics(ctx context.Context, reportID int64, metrics []models.ReportMetric) error
	GetReportMetrics(ctx context.Context, reportID int64) ([]models.ReportMetric, error)
}
