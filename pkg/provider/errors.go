package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rhuss/tooldrive/pkg/api"
)

// ClassifyStatus maps a backend HTTP status to the error taxonomy.
// retryAfter is the raw Retry-After header value and may be empty.
func ClassifyStatus(status int, message, retryAfter string) *api.APIError {
	var apiErr *api.APIError
	switch {
	case status == http.StatusBadRequest || status == http.StatusNotFound ||
		status == http.StatusUnprocessableEntity:
		if message == "" {
			message = fmt.Sprintf("backend rejected the request (HTTP %d)", status)
		}
		apiErr = api.NewInvalidRequestError("", message)

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if message == "" {
			message = "backend authentication failed"
		}
		apiErr = api.NewAuthenticationError(message)

	case status == http.StatusTooManyRequests:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		apiErr = api.NewRateLimitedError(message, ParseRetryAfter(retryAfter, time.Now()))

	case status == http.StatusRequestTimeout || status == http.StatusConflict ||
		status >= http.StatusInternalServerError:
		if message == "" {
			message = fmt.Sprintf("backend server error (HTTP %d)", status)
		}
		apiErr = api.NewTransientBackendError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected backend error (HTTP %d)", status)
		}
		apiErr = api.NewInvalidRequestError("", message)
	}
	apiErr.StatusCode = status
	return apiErr
}

// ParseRetryAfter decodes a Retry-After header given either as delay
// seconds or as an HTTP date. Invalid or past values yield zero.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// ClassifyNetworkError converts a transport failure (connection refused,
// timeout, DNS failure) into a transient backend error. Context
// cancellation and deadline errors pass through unchanged so callers can
// tell a cancelled run from a backend outage.
func ClassifyNetworkError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewTransientBackendError(fmt.Sprintf("backend connection error: %s", err.Error()))
}

// IsFatal reports whether err must end the run without another attempt.
func IsFatal(err error) bool {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Retryable()
	}
	return true
}
