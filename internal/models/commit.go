package models

import (
	"fmt"
	"time"
)

type Commit struct {
	ID              int64      `json:"id"`
	GitHubID        string     `json:"github_id"`
	Message         string     `json:"message"`
	AuthorName      string     `json:"author_name"`
	AuthorEmail     string     `json:"author_email"`
	CommitterName   string     `json:"committer_name"`
	CommitterEmail  string     `json:"committer_email"`
	HTMLURL         string     `json:"html_url"`
	Additions       int        `json:"additions"`
	Deletions       int        `json:"deletions"`
	ChangedFiles    int        `json:"changed_files"`
	Processed       bool       `json:"processed"`
	PostGenerated   bool       `json:"post_generated"`
	PostPublished   bool       `json:"post_published"`
	ProcessingError string     `json:"processing_error,omitempty"`
	RepositoryID    int64      `json:"repository_id"`
	CommittedAt     time.Time  `json:"committed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}

// Validate checks the invariants the commits table enforces.
func (c *Commit) Validate() error {
	if c.GitHubID == "" {
		return fmt.Errorf("commit sha is required")
	}
	if c.Additions < 0 || c.Deletions < 0 || c.ChangedFiles < 0 {
		return fmt.Errorf("commit %s has negative change counters", c.GitHubID)
	}
	return nil
}
