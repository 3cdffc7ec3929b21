package review

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxErrorMessageLen = 500

// Error messages end up in the database and in API responses, so credentials
// that SDKs occasionally echo back must never survive verbatim.
var apiKeyRegex = regexp.MustCompile(`sk-[A-Za-z0-9_-]{8,}`)

// sanitizeError collapses an error to a single bounded line safe to persist
func sanitizeError(err error) string {
	if err == nil {
		return "unknown error"
	}

	msg := apiKeyRegex.ReplaceAllString(err.Error(), "[redacted]")
	msg = strings.Join(strings.Fields(msg), " ")

	// Truncate on a rune boundary; messages are often Cyrillic and a byte
	// slice could persist invalid UTF-8
	if utf8.RuneCountInString(msg) > maxErrorMessageLen {
		msg = string([]rune(msg)[:maxErrorMessageLen]) + "..."
	}
	if msg == "" {
		return "unknown error"
	}
	return msg
}
