package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kurslab/reviewd/internal/types"
)

// Pre-compiled patterns for cleaning up LLM JSON output
var (
	codeFenceRegex     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// reviewResponse is the wire shape of the generator's JSON reply
type reviewResponse struct {
	Analysis  *types.Analysis            `json:"analysis"`
	Questions []*types.CandidateQuestion `json:"questions"`
}

// parseReviewResponse decodes the model's reply into a Result, tolerating the
// usual LLM formatting quirks: code fences, surrounding prose, trailing
// commas. Candidates with invalid enum values are dropped rather than failing
// the whole run; an unusable analysis does fail it.
func parseReviewResponse(text string) (*Result, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var resp reviewResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		// One more try with trailing commas removed
		cleaned := trailingCommaRegex.ReplaceAllString(raw, "$1")
		if err2 := json.Unmarshal([]byte(cleaned), &resp); err2 != nil {
			return nil, fmt.Errorf("response is not valid JSON: %w", err)
		}
	}

	if resp.Analysis == nil {
		return nil, fmt.Errorf("response has no analysis object")
	}
	if err := resp.Analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis in response: %w", err)
	}

	candidates := make([]*types.CandidateQuestion, 0, len(resp.Questions))
	for _, q := range resp.Questions {
		if q == nil {
			continue
		}
		normalizeCandidate(q)
		if err := q.Validate(); err != nil {
			// Malformed candidate, skip it - the filter cannot fix a
			// question with no text or unknown classification
			continue
		}
		candidates = append(candidates, q)
	}

	return &Result{
		Analysis:   resp.Analysis,
		Candidates: candidates,
	}, nil
}

// normalizeCandidate fills conservative defaults for omitted classification
// fields so an otherwise good question is not lost to a missing label
func normalizeCandidate(q *types.CandidateQuestion) {
	if q.Type == "" {
		q.Type = types.QuestionKnowledge
	}
	if q.Difficulty == "" {
		q.Difficulty = types.DifficultyMedium
	}
	if q.Source == "" {
		q.Source = types.SourceSubmission
	}
}

// extractJSON pulls the JSON object out of a possibly fenced or prose-wrapped
// response
func extractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("empty response")
	}

	// Direct object
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, nil
	}

	// Fenced block
	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		inner := strings.TrimSpace(m[1])
		if inner != "" {
			return inner, nil
		}
	}

	// Object embedded in prose
	if m := objectRegex.FindString(trimmed); m != "" {
		return m, nil
	}

	return "", fmt.Errorf("no JSON object found in response")
}
