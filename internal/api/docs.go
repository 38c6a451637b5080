package api

import (
	"time"

	_ "github.com/sc2sm/sc2sm/docs"
	"github.com/sc2sm/sc2sm/internal/models"
)

// ErrorResponse represents an error response
// @Description Error response returned by every JSON endpoint
// @swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// @example Invalid signature
	Error string `json:"error" example:"Invalid signature"`
}

// MessageResponse is a plain acknowledgement
// @swagger:model MessageResponse
type MessageResponse struct {
	// @example Processed 3 commits
	Message string `json:"message" example:"Processed 3 commits"`
}

// HealthResponse represents the liveness probe
// @Description Liveness of the service. Never touches the database.
// @swagger:model HealthResponse
type HealthResponse struct {
	Status            string `json:"status" example:"healthy"`
	Service           string `json:"service" example:"sc2sm"`
	ActiveDeviceCodes int    `json:"active_device_codes" example:"0"`
}

// WelcomeResponse is shown to visitors without a session
type WelcomeResponse struct {
	Service  string `json:"service" example:"sc2sm"`
	Message  string `json:"message"`
	LoginURL string `json:"login_url" example:"/auth/login"`
	Flash    string `json:"flash,omitempty"`
}

// DashboardResponse summarizes a user's activity
// @swagger:model DashboardResponse
type DashboardResponse struct {
	// One-shot message from the previous action
	// @example Post published
	Flash string       `json:"flash,omitempty" example:"Post published"`
	User  *models.User `json:"user"`
	// Number of tracked repositories
	ReposCount int `json:"repos_count" example:"2"`
	// Number of posts in any status
	PostsCount int64 `json:"posts_count" example:"14"`
	// Number of published posts
	PublishedPosts int64          `json:"published_posts" example:"9"`
	RecentPosts    []*models.Post `json:"recent_posts"`
}

// ReportQueuedResponse is returned when a report is accepted for background generation
// @swagger:model ReportQueuedResponse
type ReportQueuedResponse struct {
	ReportID int64  `json:"report_id" example:"42"`
	Status   string `json:"status" example:"pending"`
	Message  string `json:"message,omitempty" example:"Report generation started"`
}

// ReportCreatedResponse is returned by a synchronous report generation
// @swagger:model ReportCreatedResponse
type ReportCreatedResponse struct {
	ReportID       int64                `json:"report_id" example:"42"`
	Status         string               `json:"status" example:"completed"`
	Message        string               `json:"message"`
	Organization   string               `json:"organization,omitempty" example:"acme"`
	From           string               `json:"from" example:"2024-05-01"`
	To             string               `json:"to" example:"2024-05-31"`
	ParametersUsed models.ReportOptions `json:"parameters_used"`
	CreatedAt      time.Time            `json:"created_at"`
}

// ReportFailedResponse is returned when a synchronous report fails
// @swagger:model ReportFailedResponse
type ReportFailedResponse struct {
	ReportID int64       `json:"report_id" example:"42"`
	Status   string      `json:"status" example:"failed"`
	Error    string      `json:"error" example:"CodeRabbit API error: 401"`
	Details  interface{} `json:"details,omitempty"`
}

// DevicePollResponse is the outcome of a device flow poll
// @swagger:model DevicePollResponse
type DevicePollResponse struct {
	// pending, success, denied, expired or failed
	// @example pending
	Status      string       `json:"status" example:"pending"`
	Message     string       `json:"message,omitempty"`
	Error       string       `json:"error,omitempty"`
	AccessToken string       `json:"access_token,omitempty"`
	TokenType   string       `json:"token_type,omitempty" example:"bearer"`
	Scope       string       `json:"scope,omitempty" example:"repo"`
	User        *models.User `json:"user,omitempty"`
}
