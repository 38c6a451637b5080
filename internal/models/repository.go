package models

import (
	"strings"
	"time"
)

const defaultMinCommitMessageLength = 10

type Repository struct {
	BaseModel
	GitHubID     int64              `json:"github_id"`
	Name         string             `json:"name"`
	FullName     string             `json:"full_name"`
	Description  string             `json:"description"`
	HTMLURL      string             `json:"html_url"`
	Language     string             `json:"language"`
	IsPrivate    bool               `json:"is_private"`
	UserID       int64              `json:"user_id"`
	Settings     RepositorySettings `json:"settings"`
	LastSyncedAt *time.Time         `json:"last_synced_at,omitempty"`
}

// RepositorySettings is the per-repository posting policy
type RepositorySettings struct {
	AutoPostEnabled        bool `json:"auto_post_enabled"`
	PostCommits            bool `json:"post_commits"`
	PostIssues             bool `json:"post_issues"`
	PostPullRequests       bool `json:"post_pull_requests"`
	PostReleases           bool `json:"post_releases"`
	MinCommitMessageLength int  `json:"min_commit_message_length"`
}

// DefaultRepositorySettings returns the policy applied to newly tracked repositories
func DefaultRepositorySettings() RepositorySettings {
	return RepositorySettings{
		PostCommits:            true,
		PostPullRequests:       true,
		PostReleases:           true,
		MinCommitMessageLength: defaultMinCommitMessageLength,
	}
}

// AllowsCommit reports whether a commit with the given message may become a post.
func (r *Repository) AllowsCommit(message string) bool {
	if !r.Settings.PostCommits {
		return false
	}
	return len(strings.TrimSpace(message)) >= r.Settings.MinCommitMessageLength
}

// Owner returns the owner login part of the full name.
func (r *Repository) Owner() string {
	owner, _, _ := strings.Cut(r.FullName, "/")
	return owner
}
