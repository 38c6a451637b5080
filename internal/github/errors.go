package github

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/go-github/v62/github"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
)

const serviceName = "GitHub"

// translateError maps go-github and transport failures onto application errors.
// resource names what was requested, e.g. "repository".
func translateError(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return apperrors.NewRateLimitError(fmt.Sprintf("GitHub API rate limit exceeded, resets at %s",
			rateErr.Rate.Reset.Time.UTC().Format("15:04:05 MST")))
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return apperrors.NewRateLimitError("GitHub secondary rate limit exceeded")
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return apperrors.NewResourceNotFoundError(resource, id)
		case http.StatusUnauthorized:
			return apperrors.NewUnauthorizedError("GitHub rejected the access token", err)
		default:
			return apperrors.NewUpstreamError(serviceName, respErr.Response.StatusCode, respErr.Message)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeoutError("Request to GitHub timed out", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return apperrors.NewUnavailableError("Failed to connect to GitHub", err)
	}

	return apperrors.NewInternalError(fmt.Sprintf("GitHub request failed: %v", err), err)
}

// retryable reports whether a failed call is worth repeating
func retryable(resp *github.Response, err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return false
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		return respErr.Response != nil && respErr.Response.StatusCode >= 500
	}
	if resp != nil && resp.StatusCode >= 500 {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
