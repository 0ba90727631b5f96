package tools

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"unicode"

	"golang.org/x/time/rate"
)

// RateLimit is a token bucket configuration for one tool.
type RateLimit struct {
	// PerSecond is the sustained call rate. Zero disables limiting.
	PerSecond float64 `yaml:"rate_per_second"`

	// Burst is the bucket size. Values below one are treated as one.
	Burst int `yaml:"burst"`
}

// limiterSet holds one token bucket per tool name, created on first use.
type limiterSet struct {
	defaults  RateLimit
	overrides map[string]RateLimit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLimiterSet(defaults RateLimit, overrides map[string]RateLimit) *limiterSet {
	return &limiterSet{
		defaults:  defaults,
		overrides: overrides,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// allow takes a token from the named tool's bucket.
func (s *limiterSet) allow(tool string) bool {
	cfg, ok := s.overrides[tool]
	if !ok {
		cfg = s.defaults
	}
	if cfg.PerSecond <= 0 {
		return true
	}

	s.mu.Lock()
	lim, ok := s.limiters[tool]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(cfg.PerSecond), max(cfg.Burst, 1))
		s.limiters[tool] = lim
	}
	s.mu.Unlock()

	return lim.Allow()
}

// checkExposed rejects control characters in the argument fields a binding
// exposes to shell or URL contexts.
func checkExposed(exp Exposure, args map[string]any) error {
	if exp.All {
		keys := make([]string, 0, len(args))
		for k := range args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := scanControl(k, args[k]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, field := range exp.Fields {
		v, ok := args[field]
		if !ok {
			continue
		}
		if err := scanControl(field, v); err != nil {
			return err
		}
	}
	return nil
}

func scanControl(path string, v any) error {
	switch t := v.(type) {
	case string:
		if i := slices.IndexFunc([]rune(t), unicode.IsControl); i >= 0 {
			return &ValidationError{Field: path, Message: "control characters are not allowed"}
		}
	case map[string]any:
		for k, sub := range t {
			if err := scanControl(path+"."+k, sub); err != nil {
				return err
			}
		}
	case []any:
		for i, sub := range t {
			if err := scanControl(fmt.Sprintf("%s[%d]", path, i), sub); err != nil {
				return err
			}
		}
	}
	return nil
}
