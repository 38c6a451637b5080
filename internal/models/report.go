package models

import (
	"encoding/json"
	"time"
)

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
)

// ReportOptions are the optional CodeRabbit request parameters. JSON names
// follow the CodeRabbit API.
type ReportOptions struct {
	ScheduleRange  string          `json:"scheduleRange,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	PromptTemplate string          `json:"promptTemplate,omitempty"`
	Parameters     json.RawMessage `json:"parameters,omitempty"`
	GroupBy        string          `json:"groupBy,omitempty"`
	SubgroupBy     string          `json:"subgroupBy,omitempty"`
	OrgID          string          `json:"orgId,omitempty"`
}

type Report struct {
	ID              int64           `json:"id"`
	Organization    string          `json:"organization"`
	FromDate        string          `json:"from_date"`
	ToDate          string          `json:"to_date"`
	Options         ReportOptions   `json:"parameters_used"`
	Status          ReportStatus    `json:"status"`
	Summary         string          `json:"summary,omitempty"`
	CommitsAnalyzed *int            `json:"commits_analyzed,omitempty"`
	FilesChanged    *int            `json:"files_changed,omitempty"`
	IssuesFound     *int            `json:"issues_found,omitempty"`
	Score           *float64        `json:"score,omitempty"`
	ReportData      json.RawMessage `json:"report_data,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	RequestID       string          `json:"request_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Metrics         []ReportMetric  `json:"metrics,omitempty"`
}

// ReportSummary holds the fields derived from a completed report
type ReportSummary struct {
	Summary         string
	CommitsAnalyzed *int
	FilesChanged    *int
	IssuesFound     *int
	Score           *float64
	RequestID       string
	ReportData      json.RawMessage
}

type ReportMetric struct {
	ID          int64           `json:"id"`
	ReportID    int64           `json:"report_id"`
	MetricName  string          `json:"metric_name"`
	MetricValue string          `json:"metric_value"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// ReportFilter narrows report listings
type ReportFilter struct {
	Organization string
	Status       ReportStatus
	FromDate     *time.Time
	ToDate       *time.Time
	Limit        int
	Offset       int
}
