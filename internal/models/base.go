package models

import "time"

// BaseModel contains common fields for all database models
type BaseModel struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Supported platforms for posts and OAuth tokens
const (
	PlatformTwitter = "twitter"
	PlatformGitHub  = "github"
)
