package filter

import "strings"

// polarMarkers are interrogative particles that signal a yes/no question.
// A question containing any of them can be answered without reflection, so it
// is not worth asking regardless of length. Matched against normalized text.
var polarMarkers = []string{
	"правда ли",
	"верно ли",
	"правильно ли",
	"так ли",
	"есть ли у тебя",
	"согласен ли",
	"знаешь ли",
}

// definitionPrefix is the bare "what is X" template. A short single-clause
// definitional ask is trivial; the same template with an added comparative or
// contextual clause carries extra keywords and is kept.
const definitionPrefix = "что такое"

// IsTrivial reports whether a question is too shallow to ask the student.
// Pure and stateless; the decision depends only on the question text and the
// configured keyword ceiling.
func (p *Pipeline) IsTrivial(question string) bool {
	norm := Normalize(question)
	if norm == "" {
		return false
	}

	for _, marker := range polarMarkers {
		if strings.Contains(norm, marker) {
			return true
		}
	}

	if strings.HasPrefix(norm, definitionPrefix) {
		if len(Keywords(norm)) <= p.cfg.TrivialMaxKeywords {
			return true
		}
	}

	return false
}
