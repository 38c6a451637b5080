package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

const repositoryColumns = `id, github_id, name, full_name, description, html_url, language, is_private, user_id,
	auto_post_enabled, post_commits, post_issues, post_pull_requests, post_releases, min_commit_message_length,
	last_synced_at, created_at, updated_at`

func scanRepository(row scanner) (*models.Repository, error) {
	var r models.Repository
	var githubID sql.NullInt64
	var description, htmlURL, language sql.NullString
	var lastSynced sql.NullTime

	if err := row.Scan(
		&r.ID, &githubID, &r.Name, &r.FullName, &description, &htmlURL, &language, &r.IsPrivate, &r.UserID,
		&r.Settings.AutoPostEnabled, &r.Settings.PostCommits, &r.Settings.PostIssues,
		&r.Settings.PostPullRequests, &r.Settings.PostReleases, &r.Settings.MinCommitMessageLength,
		&lastSynced, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.GitHubID = githubID.Int64
	r.Description = description.String
	r.HTMLURL = htmlURL.String
	r.Language = language.String
	if lastSynced.Valid {
		r.LastSyncedAt = &lastSynced.Time
	}
	return &r, nil
}

// SaveRepository inserts a tracked repository. Tracking the same full name
// twice for one user is reported as invalid input.
func (s *PostgresStore) SaveRepository(ctx context.Context, repo *models.Repository) error {
	var githubID sql.NullInt64
	if repo.GitHubID != 0 {
		githubID = sql.NullInt64{Int64: repo.GitHubID, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO repositories (
			github_id, name, full_name, description, html_url, language, is_private, user_id,
			auto_post_enabled, post_commits, post_issues, post_pull_requests, post_releases, min_commit_message_length
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, full_name) DO NOTHING
		RETURNING id, created_at, updated_at`,
		githubID, repo.Name, repo.FullName, nullString(repo.Description), nullString(repo.HTMLURL),
		nullString(repo.Language), repo.IsPrivate, repo.UserID,
		repo.Settings.AutoPostEnabled, repo.Settings.PostCommits, repo.Settings.PostIssues,
		repo.Settings.PostPullRequests, repo.Settings.PostReleases, repo.Settings.MinCommitMessageLength,
	).Scan(&repo.ID, &repo.CreatedAt, &repo.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperrors.NewValidationError("Repository already tracked", nil)
	} else if err != nil {
		return fmt.Errorf("failed to save repository: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRepository(ctx context.Context, id int64) (*models.Repository, error) {
	r, err := scanRepository(s.db.QueryRowContext(ctx, `SELECT `+repositoryColumns+` FROM repositories WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("repository", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	return r, nil
}

// GetRepositoryByFullName returns the oldest tracking of owner/name.
func (s *PostgresStore) GetRepositoryByFullName(ctx context.Context, fullName string) (*models.Repository, error) {
	r, err := scanRepository(s.db.QueryRowContext(ctx, `
		SELECT `+repositoryColumns+` FROM repositories
		WHERE LOWER(full_name) = LOWER($1)
		ORDER BY id LIMIT 1`, fullName))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("repository", fullName)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get repository by name: %w", err)
	}
	return r, nil
}

// GetUserRepositoryByFullName returns the user's tracking of owner/name
func (s *PostgresStore) GetUserRepositoryByFullName(ctx context.Context, userID int64, fullName string) (*models.Repository, error) {
	r, err := scanRepository(s.db.QueryRowContext(ctx, `
		SELECT `+repositoryColumns+` FROM repositories
		WHERE user_id = $1 AND LOWER(full_name) = LOWER($2)`, userID, fullName))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("repository", fullName)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get repository by name: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListRepositories(ctx context.Context, userID int64) ([]*models.Repository, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+repositoryColumns+` FROM repositories
		WHERE user_id = $1
		ORDER BY full_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query repositories: %w", err)
	}
	defer rows.Close()

	repos := []*models.Repository{}
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repositories: %w", err)
	}
	return repos, nil
}

func (s *PostgresStore) UpdateRepositorySettings(ctx context.Context, id int64, settings models.RepositorySettings) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE repositories SET
			auto_post_enabled = $2,
			post_commits = $3,
			post_issues = $4,
			post_pull_requests = $5,
			post_releases = $6,
			min_commit_message_length = $7,
			updated_at = NOW()
		WHERE id = $1`,
		id, settings.AutoPostEnabled, settings.PostCommits, settings.PostIssues,
		settings.PostPullRequests, settings.PostReleases, settings.MinCommitMessageLength)
	if err != nil {
		return fmt.Errorf("failed to update repository settings: %w", err)
	}
	return expectOneRow(result, "repository", id)
}

// DeleteRepository removes a repository; commits and posts cascade.
func (s *PostgresStore) DeleteRepository(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}
	return expectOneRow(result, "repository", id)
}

func (s *PostgresStore) MarkRepositorySynced(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE repositories SET last_synced_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark repository synced: %w", err)
	}
	return expectOneRow(result, "repository", id)
}
