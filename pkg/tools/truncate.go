package tools

import (
	"fmt"
	"unicode/utf8"
)

// TruncationMarker is appended to outputs cut at MaxResultBytes.
const TruncationMarker = "\n[output truncated: %d of %d bytes shown]"

// Truncate caps s at limit bytes without splitting a UTF-8 sequence. A
// marker noting the original size is appended when s was cut. A limit of
// zero or less disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := truncateUTF8(s, limit)
	return cut + fmt.Sprintf(TruncationMarker, len(cut), len(s))
}

// truncateUTF8 returns the longest prefix of s of at most n bytes that ends
// on a rune boundary.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
