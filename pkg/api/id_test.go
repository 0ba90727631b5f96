package api

import (
	"strings"
	"testing"
)

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	if !strings.HasPrefix(id, "run_") {
		t.Errorf("NewRunID() = %q, want prefix run_", id)
	}
	if !ValidateRunID(id) {
		t.Errorf("ValidateRunID(%q) = false, want true", id)
	}
}

func TestNewCallID(t *testing.T) {
	id := NewCallID()
	if !ValidateCallID(id) {
		t.Errorf("ValidateCallID(%q) = false, want true", id)
	}
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewCallID()
		if seen[id] {
			t.Fatalf("duplicate ID after %d iterations: %s", i, id)
		}
		seen[id] = true
	}
}

func TestValidateRunIDRejects(t *testing.T) {
	for _, id := range []string{"", "run_", "resp_0123456789abcdef0123456789abcdef", "run_XYZ"} {
		if ValidateRunID(id) {
			t.Errorf("ValidateRunID(%q) = true, want false", id)
		}
	}
}
