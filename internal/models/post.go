package models

import (
	"errors"
	"time"
)

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

// ErrAlreadyPublished is returned when publishing or editing a published post
var ErrAlreadyPublished = errors.New("Post is already published")

type Post struct {
	BaseModel
	Content        string     `json:"content"`
	Platform       string     `json:"platform"`
	PlatformPostID string     `json:"platform_post_id,omitempty"`
	Status         PostStatus `json:"status"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	Hashtags       []string   `json:"hashtags,omitempty"`
	Mentions       []string   `json:"mentions,omitempty"`
	MediaURLs      []string   `json:"media_urls,omitempty"`
	LikesCount     int        `json:"likes_count"`
	RetweetsCount  int        `json:"retweets_count"`
	CommentsCount  int        `json:"comments_count"`
	ViewsCount     int        `json:"views_count"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	RetryCount     int        `json:"retry_count"`
	UserID         int64      `json:"user_id"`
	RepositoryID   *int64     `json:"repository_id,omitempty"`
	CommitID       *int64     `json:"commit_id,omitempty"`
}

// CanPublish fails when the post has already reached the network.
func (p *Post) CanPublish() error {
	if p.Status == PostStatusPublished {
		return ErrAlreadyPublished
	}
	return nil
}

// PostMetrics are engagement counters read back from the network
type PostMetrics struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Comments int `json:"comments"`
	Views    int `json:"views"`
}

// PostFilter narrows post listings
type PostFilter struct {
	UserID       int64
	Status       PostStatus
	RepositoryID int64
	Limit        int
	Offset       int
}
