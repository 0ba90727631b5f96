package tools

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholders(t *testing.T) {
	got := Placeholders("/repos/{owner}/{repo}/issues/{owner}")
	assert.Equal(t, []string{"owner", "repo"}, got)
	assert.Nil(t, Placeholders("/static/path"))
}

func TestExpand(t *testing.T) {
	args := map[string]any{"city": "São Paulo", "days": float64(3), "metric": true}

	got, err := Expand("/weather/{city}/{days}?metric={metric}", args, url.PathEscape)
	require.NoError(t, err)
	assert.Equal(t, "/weather/S%C3%A3o%20Paulo/3?metric=true", got)
}

func TestExpandMissingArgument(t *testing.T) {
	_, err := Expand("/weather/{city}", map[string]any{}, nil)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "city", ve.Field)
}

func TestArgString(t *testing.T) {
	assert.Equal(t, "2.5", ArgString(2.5))
	assert.Equal(t, "7", ArgString(7))
	assert.Equal(t, `["a","b"]`, ArgString([]any{"a", "b"}))
	assert.Equal(t, `{"k":1}`, ArgString(map[string]any{"k": 1}))
}
