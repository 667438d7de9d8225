package engine

import (
	"strings"
	"unicode"
)

// Content size limits (approximate token → char conversion: 1 token ≈ 4 chars).
const (
	maxTextChars = 4000 // ~1K tokens
	maxTagChars  = 40
)

// validTagChar returns true if the character is allowed in a user tag.
// Allowed: lowercase alphanumeric, hyphens, underscores.
func validTagChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}

// sanitizeTag normalizes a free-form tag to [a-z0-9_-].
// Uppercases become lowercase, spaces/dots/slashes become hyphens, invalid chars are dropped.
// Returns empty string if the result is empty after sanitization.
func sanitizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}

	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(tag) {
		if validTagChar(r) {
			b.WriteRune(r)
			prevHyphen = (r == '-')
		} else if r == ' ' || r == '.' || r == '/' {
			// Collapse separators to single hyphen
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	result := strings.Trim(b.String(), "-_")
	if len(result) > maxTagChars {
		result = strings.Trim(result[:maxTagChars], "-_")
	}
	return result
}

// sanitizeTags applies sanitizeTag and drops empties and duplicates.
func sanitizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if s := sanitizeTag(t); s != "" {
			out = append(out, s)
		}
	}
	return dedupe(out)
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// truncateClean truncates a string to maxLen, cutting at the last word boundary
// to avoid mid-word breaks.
func truncateClean(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	// Back up to last space
	truncated := s[:maxLen]
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen-200 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
