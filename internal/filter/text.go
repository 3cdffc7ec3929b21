package filter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize canonicalizes free text for comparison: lower-cases, replaces
// punctuation runs with a single space (letters and digits of any script are
// kept), collapses whitespace and trims the ends.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			// Punctuation and whitespace alike become separators, so
			// "sql-инъекций" and "sql инъекций" normalize identically.
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// minKeywordRunes is the token length floor for keyword extraction.
// Tokens of 3 runes or fewer are function words and noise, not signal.
const minKeywordRunes = 3

// Keywords derives the comparison key-set from text: normalized tokens whose
// rune length exceeds 3. Length is measured in runes, not bytes, so Cyrillic
// and other multi-byte tokens are counted correctly.
func Keywords(text string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, token := range strings.Fields(Normalize(text)) {
		if utf8.RuneCountInString(token) > minKeywordRunes {
			keys[token] = struct{}{}
		}
	}
	return keys
}
