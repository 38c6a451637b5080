package db

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

const commitColumns = `id, github_id, message, author_name, author_email, committer_name, committer_email,
	html_url, additions, deletions, changed_files, processed, post_generated, post_published,
	processing_error, repository_id, committed_at, created_at, processed_at`

func scanCommit(row scanner) (*models.Commit, error) {
	var c models.Commit
	var authorName, authorEmail, committerName, committerEmail, htmlURL, processingError sql.NullString
	var processedAt sql.NullTime

	if err := row.Scan(
		&c.ID, &c.GitHubID, &c.Message, &authorName, &authorEmail, &committerName, &committerEmail,
		&htmlURL, &c.Additions, &c.Deletions, &c.ChangedFiles, &c.Processed, &c.PostGenerated, &c.PostPublished,
		&processingError, &c.RepositoryID, &c.CommittedAt, &c.CreatedAt, &processedAt,
	); err != nil {
		return nil, err
	}

	c.AuthorName = authorName.String
	c.AuthorEmail = authorEmail.String
	c.CommitterName = committerName.String
	c.CommitterEmail = committerEmail.String
	c.HTMLURL = htmlURL.String
	c.ProcessingError = processingError.String
	if processedAt.Valid {
		c.ProcessedAt = &processedAt.Time
	}
	return &c, nil
}

// SaveCommit inserts a commit unless its sha was already ingested. It
// reports whether a new row was created.
func (s *PostgresStore) SaveCommit(ctx context.Context, commit *models.Commit) (bool, error) {
	if err := commit.Validate(); err != nil {
		return false, apperrors.NewValidationError(err.Error(), err)
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO commits (
			github_id, message, author_name, author_email, committer_name, committer_email,
			html_url, additions, deletions, changed_files, repository_id, committed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (github_id) DO NOTHING
		RETURNING id, created_at`,
		commit.GitHubID, commit.Message, nullString(commit.AuthorName), nullString(commit.AuthorEmail),
		nullString(commit.CommitterName), nullString(commit.CommitterEmail), nullString(commit.HTMLURL),
		commit.Additions, commit.Deletions, commit.ChangedFiles, commit.RepositoryID, commit.CommittedAt,
	).Scan(&commit.ID, &commit.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to save commit %s: %w", commit.GitHubID, err)
	}
	return true, nil
}

func (s *PostgresStore) GetCommitBySHA(ctx context.Context, sha string) (*models.Commit, error) {
	c, err := scanCommit(s.db.QueryRowContext(ctx, `SELECT `+commitColumns+` FROM commits WHERE github_id = $1`, sha))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("commit", sha)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return c, nil
}

// ListCommits returns a page of commits for a repository and the total count
func (s *PostgresStore) ListCommits(ctx context.Context, repoID int64, limit, offset int) ([]*models.Commit, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM commits WHERE repository_id = $1`, repoID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commitColumns+` FROM commits
		WHERE repository_id = $1
		ORDER BY committed_at DESC
		LIMIT $2 OFFSET $3`, repoID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query commits: %w", err)
	}
	defer rows.Close()

	commits := []*models.Commit{}
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating commits: %w", err)
	}
	return commits, total, nil
}

func (s *PostgresStore) MarkCommitProcessed(ctx context.Context, id int64, postGenerated bool, processingError string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE commits SET
			processed = TRUE,
			post_generated = $2,
			processing_error = $3,
			processed_at = NOW()
		WHERE id = $1`, id, postGenerated, nullString(processingError))
	if err != nil {
		return fmt.Errorf("failed to mark commit processed: %w", err)
	}
	return expectOneRow(result, "commit", id)
}

func (s *PostgresStore) MarkCommitPublished(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE commits SET post_published = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark commit published: %w", err)
	}
	return expectOneRow(result, "commit", id)
}
