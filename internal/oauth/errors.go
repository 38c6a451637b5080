package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
)

const tokenTimeout = 10 * time.Second

// classify maps token endpoint and transport failures onto application errors
func classify(service string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := http.StatusBadRequest
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 400 {
			status = retrieveErr.Response.StatusCode
		}
		details := retrieveErr.ErrorDescription
		if details == "" {
			details = retrieveErr.ErrorCode
		}
		if details == "" {
			details = string(retrieveErr.Body)
		}
		return apperrors.NewUpstreamError(service, status, details)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(fmt.Sprintf("Request to %s timed out", service), err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeoutError(fmt.Sprintf("Request to %s timed out", service), err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return apperrors.NewUnavailableError(fmt.Sprintf("Failed to connect to %s", service), err)
	}

	return apperrors.NewInternalError(fmt.Sprintf("Request failed: %v", err), err)
}

// withHTTPClient makes the oauth2 package use client for ctx
func withHTTPClient(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}
