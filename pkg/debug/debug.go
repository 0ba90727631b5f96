// Package debug configures process logging for tooldrive and provides
// category-scoped debug output on top of it.
//
// Categories select WHAT is traced and the level selects HOW MUCH:
//
//	debug.Log("providers", "chat completion request", "model", model)
//	if debug.TraceEnabled("providers") { /* expensive formatting */ }
//
// Categories: providers, engine, tools, mcp, transport, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"unicode/utf8"
)

// EnvCategories names the environment variable that overrides the
// configured categories.
const EnvCategories = "TOOLDRIVE_DEBUG"

// LevelTrace is below slog.LevelDebug. At TRACE, request and response
// bodies are logged.
const LevelTrace = slog.LevelDebug - 4

// categories is written by Setup at startup and read-only afterwards.
var categories = parseCategories(os.Getenv(EnvCategories))

// Options controls Setup.
type Options struct {
	// Categories is a comma-separated category list. TOOLDRIVE_DEBUG wins
	// when set.
	Categories string

	// Level is one of ERROR, WARN, INFO, DEBUG or TRACE, case-insensitive.
	Level string

	// Format is "text" or "json". Anything else selects text.
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// Setup builds the process logger, installs it as the slog default and
// returns it. Any enabled category lowers the level to at least DEBUG so
// its output is visible.
func Setup(opts Options) *slog.Logger {
	cats := os.Getenv(EnvCategories)
	if cats == "" {
		cats = opts.Categories
	}
	categories = parseCategories(cats)

	level := ParseLevel(opts.Level)
	if len(categories) > 0 && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level, ReplaceAttr: levelName}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// levelName renders LevelTrace as "TRACE" instead of "DEBUG-4".
func levelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// Enabled reports whether debug output is active for the category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug record tagged with the category. No-op when the
// category is disabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a TRACE record tagged with the category.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceEnabled reports whether Trace output for the category would be
// written.
func TraceEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(context.Background(), LevelTrace)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to
// INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	result := make([]string, 0, len(categories))
	for k := range categories {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Truncate shortens s to at most maxLen bytes without splitting a UTF-8
// sequence, appending "..." when anything was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
