package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	runIDPrefix  = "run_"
	callIDPrefix = "call_"
	callIDLength = 24
)

var (
	runIDPattern  = regexp.MustCompile(`^run_[a-f0-9]{32}$`)
	callIDPattern = regexp.MustCompile(`^call_[a-f0-9]{24}$`)
)

// NewRunID generates a new run ID with the "run_" prefix followed by the
// 32 hex digits of a random UUID.
func NewRunID() string {
	return runIDPrefix + compactUUID()
}

// NewCallID generates a tool call ID for backends that do not issue one.
func NewCallID() string {
	return callIDPrefix + compactUUID()[:callIDLength]
}

// ValidateRunID checks whether the given string is a valid run ID.
func ValidateRunID(id string) bool {
	return runIDPattern.MatchString(id)
}

// ValidateCallID checks whether the given string was produced by NewCallID.
func ValidateCallID(id string) bool {
	return callIDPattern.MatchString(id)
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
