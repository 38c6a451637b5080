package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

const postColumns = `id, content, platform, platform_post_id, status, scheduled_at, published_at,
	hashtags, mentions, media_urls, likes_count, retweets_count, comments_count, views_count,
	error_message, retry_count, user_id, repository_id, commit_id, created_at, updated_at`

func scanPost(row scanner) (*models.Post, error) {
	var p models.Post
	var platformPostID, errorMessage sql.NullString
	var scheduledAt, publishedAt sql.NullTime
	var repoID, commitID sql.NullInt64
	var status string

	if err := row.Scan(
		&p.ID, &p.Content, &p.Platform, &platformPostID, &status, &scheduledAt, &publishedAt,
		pq.Array(&p.Hashtags), pq.Array(&p.Mentions), pq.Array(&p.MediaURLs),
		&p.LikesCount, &p.RetweetsCount, &p.CommentsCount, &p.ViewsCount,
		&errorMessage, &p.RetryCount, &p.UserID, &repoID, &commitID, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Status = models.PostStatus(status)
	p.PlatformPostID = platformPostID.String
	p.ErrorMessage = errorMessage.String
	if scheduledAt.Valid {
		p.ScheduledAt = &scheduledAt.Time
	}
	if publishedAt.Valid {
		p.PublishedAt = &publishedAt.Time
	}
	if repoID.Valid {
		p.RepositoryID = &repoID.Int64
	}
	if commitID.Valid {
		p.CommitID = &commitID.Int64
	}
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]*models.Post, error) {
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, post *models.Post) error {
	if post.Status == "" {
		post.Status = models.PostStatusDraft
	}
	if post.Platform == "" {
		post.Platform = models.PlatformTwitter
	}

	var repoID, commitID sql.NullInt64
	if post.RepositoryID != nil {
		repoID = sql.NullInt64{Int64: *post.RepositoryID, Valid: true}
	}
	if post.CommitID != nil {
		commitID = sql.NullInt64{Int64: *post.CommitID, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (
			content, platform, status, scheduled_at, hashtags, mentions, media_urls,
			user_id, repository_id, commit_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		post.Content, post.Platform, string(post.Status), nullTime(post.ScheduledAt),
		pq.Array(post.Hashtags), pq.Array(post.Mentions), pq.Array(post.MediaURLs),
		post.UserID, repoID, commitID,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("post", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// ListPosts returns a filtered page of posts, newest first, and the total count
func (s *PostgresStore) ListPosts(ctx context.Context, filter models.PostFilter) ([]*models.Post, int64, error) {
	baseQuery := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1`
	args := []interface{}{filter.UserID}
	argCount := 1

	if filter.Status != "" {
		argCount++
		baseQuery += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, string(filter.Status))
	}

	if filter.RepositoryID != 0 {
		argCount++
		baseQuery += fmt.Sprintf(" AND repository_id = $%d", argCount)
		args = append(args, filter.RepositoryID)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s) as count_query", baseQuery)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	argCount++
	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query posts: %w", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// UpdatePostContent replaces the content and returns the post to draft.
func (s *PostgresStore) UpdatePostContent(ctx context.Context, id int64, content string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			content = $2,
			status = 'draft',
			scheduled_at = NULL,
			error_message = NULL,
			updated_at = NOW()
		WHERE id = $1`, id, content)
	if err != nil {
		return fmt.Errorf("failed to update post content: %w", err)
	}
	return expectOneRow(result, "post", id)
}

func (s *PostgresStore) MarkPostPublished(ctx context.Context, id int64, platformPostID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			status = 'published',
			platform_post_id = $2,
			published_at = $3,
			error_message = NULL,
			updated_at = NOW()
		WHERE id = $1`, id, nullString(platformPostID), at)
	if err != nil {
		return fmt.Errorf("failed to mark post published: %w", err)
	}
	return expectOneRow(result, "post", id)
}

func (s *PostgresStore) MarkPostFailed(ctx context.Context, id int64, message string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			status = 'failed',
			error_message = $2,
			retry_count = retry_count + 1,
			updated_at = NOW()
		WHERE id = $1`, id, message)
	if err != nil {
		return fmt.Errorf("failed to mark post failed: %w", err)
	}
	return expectOneRow(result, "post", id)
}

func (s *PostgresStore) SchedulePost(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			status = 'scheduled',
			scheduled_at = $2,
			updated_at = NOW()
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to schedule post: %w", err)
	}
	return expectOneRow(result, "post", id)
}

func (s *PostgresStore) DeletePost(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return expectOneRow(result, "post", id)
}

// ListDuePosts returns scheduled posts whose time has come, oldest first.
func (s *PostgresStore) ListDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT 100`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due posts: %w", err)
	}
	return scanPosts(rows)
}

func (s *PostgresStore) ListPublishedPosts(ctx context.Context, since time.Time, limit int) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE status = 'published' AND platform_post_id IS NOT NULL AND published_at >= $1
		ORDER BY published_at DESC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query published posts: %w", err)
	}
	return scanPosts(rows)
}

func (s *PostgresStore) UpdatePostMetrics(ctx context.Context, id int64, metrics models.PostMetrics) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			likes_count = $2,
			retweets_count = $3,
			comments_count = $4,
			views_count = $5,
			updated_at = NOW()
		WHERE id = $1`, id, metrics.Likes, metrics.Retweets, metrics.Comments, metrics.Views)
	if err != nil {
		return fmt.Errorf("failed to update post metrics: %w", err)
	}
	return expectOneRow(result, "post", id)
}

func (s *PostgresStore) CountPublishedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts
		WHERE user_id = $1 AND status = 'published' AND published_at >= $2`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count published posts: %w", err)
	}
	return n, nil
}
