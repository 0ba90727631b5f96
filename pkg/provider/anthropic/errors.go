package anthropic

import (
	"encoding/json"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/provider"
)

// mapError classifies SDK errors into the api error taxonomy.
func mapError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		retryAfter := ""
		if apiErr.Response != nil {
			retryAfter = apiErr.Response.Header.Get("Retry-After")
		}
		return provider.ClassifyStatus(apiErr.StatusCode, errorMessage(apiErr.RawJSON()), retryAfter)
	}

	// Errors reported inside an open event stream carry no status code.
	if msg := err.Error(); strings.HasPrefix(msg, "received error while streaming") {
		if strings.Contains(msg, "rate_limit_error") {
			return api.NewRateLimitedError(msg, 0)
		}
		return api.NewTransientBackendError(msg)
	}
	return provider.ClassifyNetworkError(err)
}

// errorMessage extracts error.message from an Anthropic error body.
func errorMessage(raw string) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return ""
	}
	return body.Error.Message
}
