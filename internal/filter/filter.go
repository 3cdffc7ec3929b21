package filter

import (
	"fmt"
	"unicode/utf8"

	"github.com/kurslab/reviewd/internal/types"
)

// RejectReason is the closed set of reasons a candidate can be dropped
type RejectReason string

const (
	// RejectEmptyOrShort - question text is empty or below the length floor
	RejectEmptyOrShort RejectReason = "empty_or_short"

	// RejectTrivial - question matches a triviality pattern (polar or bare definition)
	RejectTrivial RejectReason = "trivial"

	// RejectAlreadyAnswered - submission or file text already covers the question
	RejectAlreadyAnswered RejectReason = "already_answered"

	// RejectDuplicateSurface - matches a question asked on an earlier run
	RejectDuplicateSurface RejectReason = "duplicate_surface"

	// RejectDuplicateWithinBatch - matches a candidate already accepted in this pass
	RejectDuplicateWithinBatch RejectReason = "duplicate_within_batch"
)

// IsValid checks if the reject reason value is valid
func (r RejectReason) IsValid() bool {
	switch r {
	case RejectEmptyOrShort, RejectTrivial, RejectAlreadyAnswered,
		RejectDuplicateSurface, RejectDuplicateWithinBatch:
		return true
	}
	return false
}

// RejectedQuestion pairs a dropped candidate with the reason it was dropped
type RejectedQuestion struct {
	Question *types.CandidateQuestion `json:"question"`
	Reason   RejectReason             `json:"reason"`
}

// Outcome is the result of one filtering pass over a candidate batch
type Outcome struct {
	// TotalCandidates is the number of candidates processed
	TotalCandidates int `json:"total_candidates"`

	// Accepted are the surviving candidates, in input order
	Accepted []*types.CandidateQuestion `json:"accepted"`

	// Rejected are the dropped candidates with reasons, in input order
	Rejected []RejectedQuestion `json:"rejected"`

	// RejectedReasons is the set of reasons present in Rejected
	RejectedReasons map[RejectReason]int `json:"rejected_reasons,omitempty"`
}

// Validate checks the outcome invariants: every candidate lands in exactly
// one of accepted/rejected, and the reason counts match the rejected list.
func (o *Outcome) Validate() error {
	if o.TotalCandidates != len(o.Accepted)+len(o.Rejected) {
		return fmt.Errorf("total_candidates (%d) does not match accepted (%d) + rejected (%d)",
			o.TotalCandidates, len(o.Accepted), len(o.Rejected))
	}

	counted := 0
	for reason, n := range o.RejectedReasons {
		if !reason.IsValid() {
			return fmt.Errorf("invalid reject reason: %s", reason)
		}
		if n <= 0 {
			return fmt.Errorf("reject reason %s has non-positive count %d", reason, n)
		}
		counted += n
	}
	if counted != len(o.Rejected) {
		return fmt.Errorf("rejected_reasons counts (%d) do not match rejected length (%d)",
			counted, len(o.Rejected))
	}

	for i, rej := range o.Rejected {
		if rej.Question == nil {
			return fmt.Errorf("rejected[%d] has nil question", i)
		}
		if !rej.Reason.IsValid() {
			return fmt.Errorf("rejected[%d] has invalid reason: %s", i, rej.Reason)
		}
	}

	return nil
}

// Pipeline runs the filtering pass. Construct with New; the zero value is
// not usable.
type Pipeline struct {
	cfg Config
}

// New creates a filter pipeline with the given configuration
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter config: %w", err)
	}
	return &Pipeline{cfg: cfg}, nil
}

// Config returns the pipeline's configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run filters candidates in a single ordered pass.
//
// The check order is deliberate: cheap structural checks first, then
// triviality, then the already-answered gates against submission and file
// text, then duplicates against previous questions, and finally duplicates
// against candidates accepted earlier in this same pass. First occurrence
// wins within a batch - reversing the input order changes which of two
// near-duplicates survives.
//
// Run has no side effects and never mutates its inputs.
func (p *Pipeline) Run(candidates []*types.CandidateQuestion, submissionText, fileText string, previous []string) *Outcome {
	outcome := &Outcome{
		TotalCandidates: len(candidates),
		Accepted:        make([]*types.CandidateQuestion, 0, len(candidates)),
		Rejected:        make([]RejectedQuestion, 0),
		RejectedReasons: make(map[RejectReason]int),
	}

	// Keyword sets of candidates accepted in this pass
	batchPool := make([]map[string]struct{}, 0, len(candidates))

	reject := func(q *types.CandidateQuestion, reason RejectReason) {
		outcome.Rejected = append(outcome.Rejected, RejectedQuestion{Question: q, Reason: reason})
		outcome.RejectedReasons[reason]++
	}

	for _, candidate := range candidates {
		switch {
		case utf8.RuneCountInString(candidate.Question) < p.cfg.MinQuestionLength:
			reject(candidate, RejectEmptyOrShort)

		case p.IsTrivial(candidate.Question):
			reject(candidate, RejectTrivial)

		case p.LikelyAnswered(candidate.Question, submissionText) ||
			p.LikelyAnswered(candidate.Question, fileText):
			reject(candidate, RejectAlreadyAnswered)

		case p.Duplicate(candidate.Question, previous):
			reject(candidate, RejectDuplicateSurface)

		case p.matchesBatch(candidate.Question, batchPool):
			reject(candidate, RejectDuplicateWithinBatch)

		default:
			outcome.Accepted = append(outcome.Accepted, candidate)
			batchPool = append(batchPool, Keywords(candidate.Question))
		}
	}

	if len(outcome.RejectedReasons) == 0 {
		outcome.RejectedReasons = nil
	}

	return outcome
}

// matchesBatch checks the candidate against the keyword sets of candidates
// already accepted in this pass
func (p *Pipeline) matchesBatch(question string, batchPool []map[string]struct{}) bool {
	if len(batchPool) == 0 {
		return false
	}
	keys := Keywords(question)
	for _, accepted := range batchPool {
		if OverlapRatio(keys, accepted) >= p.cfg.DuplicateThreshold {
			return true
		}
	}
	return false
}
