package filter

import "unicode/utf8"

// OverlapRatio returns |query ∩ reference| / |query|.
//
// The denominator is always the query side: the ratio answers "how much of
// this question's vocabulary is already covered", not how similar the two
// sets are symmetrically. An empty query yields 0: no evidence of overlap,
// not undefined.
func OverlapRatio(query, reference map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}

	matched := 0
	for key := range query {
		if _, ok := reference[key]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(query))
}

// LikelyAnswered reports whether the source text already covers the
// question's vocabulary heavily enough that asking it adds nothing.
//
// The length floor is a hard gate evaluated before any overlap computation:
// an empty or very short source is insufficient evidence to judge, so the
// answer is false regardless of overlap.
func (p *Pipeline) LikelyAnswered(question, sourceText string) bool {
	if utf8.RuneCountInString(sourceText) < p.cfg.MinSourceLength {
		return false
	}
	return OverlapRatio(Keywords(question), Keywords(sourceText)) >= p.cfg.AnsweredThreshold
}

// Duplicate reports whether the question repeats one of the previously asked
// questions, either verbatim after normalization (surface duplicate) or by
// near-duplicate keyword overlap (paraphrase tolerant).
//
// An empty previous list short-circuits to false: no comparison is performed.
func (p *Pipeline) Duplicate(question string, previous []string) bool {
	if len(previous) == 0 {
		return false
	}

	norm := Normalize(question)
	keys := Keywords(question)

	for _, prev := range previous {
		if Normalize(prev) == norm {
			return true
		}
		if OverlapRatio(keys, Keywords(prev)) >= p.cfg.DuplicateThreshold {
			return true
		}
	}

	return false
}
