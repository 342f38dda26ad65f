package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Log field length caps. Paths and error strings come from the wire and are
// attacker-controlled, so everything is clamped before it reaches zap.
const (
	maxPathLen    = 500
	maxUserIDLen  = 128
	maxErrorLen   = 1000
	maxDefaultLen = 2000
)

// SanitizePath prepares a request path for logging: strips control
// characters, repairs invalid UTF-8, and truncates.
func SanitizePath(path string) string {
	return SanitizeString(path, maxPathLen)
}

// SanitizeUserID prepares a user identifier for logging.
func SanitizeUserID(userID string) string {
	return SanitizeString(userID, maxUserIDLen)
}

// SanitizeError prepares an error message for logging. Returns "" for nil.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), maxErrorLen)
}

// SanitizeString strips control characters, repairs invalid UTF-8, and
// truncates s to maxLength (appending "..." when cut). A non-positive
// maxLength falls back to a 2000-byte cap.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = maxDefaultLen
	}
	s = stripControlRunes(s)
	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

// stripControlRunes removes control characters, keeping printable runes plus
// space, tab, newline, and carriage return.
func stripControlRunes(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
