package coderabbit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sc2sm/sc2sm/internal/config"
	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

const serviceName = "CodeRabbit"

// Result statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the normalized outcome of a report request. Exactly one of
// Data and Error is set.
type Result struct {
	Status     string              `json:"status"`
	Data       json.RawMessage     `json:"data,omitempty"`
	Error      string              `json:"error,omitempty"`
	Details    interface{}         `json:"details,omitempty"`
	StatusCode int                 `json:"-"`
	Kind       apperrors.ErrorType `json:"-"`
}

// OK reports whether the request succeeded
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Err converts an error result into a typed error
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	if r.Kind == apperrors.ErrUpstream {
		return apperrors.NewUpstreamError(serviceName, r.StatusCode, r.Details)
	}
	return apperrors.New(r.Kind, r.Error, nil)
}

// Client calls the CodeRabbit report API
type Client struct {
	config     *config.CodeRabbitConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg *config.CodeRabbitConfig, logger *logrus.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// GenerateReport requests a review report for [from, to]. Every failure is
// folded into the returned Result.
func (c *Client) GenerateReport(ctx context.Context, from, to string, opts models.ReportOptions) Result {
	if c.config.APIKey == "" {
		return errorResult(apperrors.ErrConfig, "CODERABBIT_API_KEY not configured")
	}

	if opts.Prompt == "" {
		opts.Prompt = c.defaultPrompt()
	}

	payload, err := json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
		models.ReportOptions
	}{From: from, To: to, ReportOptions: opts})
	if err != nil {
		return errorResult(apperrors.ErrInternal, fmt.Sprintf("Request failed: %v", err))
	}

	url := strings.TrimRight(c.config.APIBaseURL, "/") + "/report.generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errorResult(apperrors.ErrInternal, fmt.Sprintf("Request failed: %v", err))
	}
	req.Header.Set("x-coderabbitai-api-key", c.config.APIKey)
	req.Header.Set("accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	logger := c.logger.WithFields(logrus.Fields{"url": url, "from": from, "to": to})
	logger.Info("Requesting CodeRabbit report")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Error("CodeRabbit request failed")
		return transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResult(apperrors.ErrInternal, fmt.Sprintf("Request failed: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		details := parseDetails(resp.Header.Get("Content-Type"), body)
		logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"details": details,
		}).Error("CodeRabbit API error")

		return Result{
			Status:     StatusError,
			Error:      fmt.Sprintf("CodeRabbit API error: %d", resp.StatusCode),
			Details:    details,
			StatusCode: resp.StatusCode,
			Kind:       apperrors.ErrUpstream,
		}
	}

	if !json.Valid(body) {
		return errorResult(apperrors.ErrUpstream, "Request failed: invalid JSON in CodeRabbit response")
	}

	logger.WithField("bytes", len(body)).Info("CodeRabbit report received")
	return Result{Status: StatusSuccess, Data: json.RawMessage(body), StatusCode: resp.StatusCode}
}

func (c *Client) defaultPrompt() string {
	if c.config.PromptPath == "" {
		return ""
	}
	raw, err := os.ReadFile(c.config.PromptPath)
	if err != nil {
		c.logger.WithField("path", c.config.PromptPath).Warn("Default report prompt not found, sending none")
		return ""
	}
	return string(raw)
}

func errorResult(kind apperrors.ErrorType, message string) Result {
	return Result{Status: StatusError, Error: message, Kind: kind}
}

func transportError(err error) Result {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errorResult(apperrors.ErrTimeout, "Request to CodeRabbit timed out")
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return errorResult(apperrors.ErrUnavailable, "Failed to connect to CodeRabbit")
	}

	return errorResult(apperrors.ErrInternal, fmt.Sprintf("Request failed: %v", err))
}

func parseDetails(contentType string, body []byte) interface{} {
	if strings.HasPrefix(contentType, "application/json") {
		var details interface{}
		if err := json.Unmarshal(body, &details); err == nil {
			return details
		}
	}
	return map[string]string{"message": string(body)}
}
