// Package filter decides which LLM-generated review questions are worth
// asking a student.
//
// # Overview
//
// The question generator over-produces: it proposes questions that are too
// shallow, questions the student has already answered in the submission
// itself, and near-identical rephrasings of questions asked on earlier runs
// or earlier in the same batch. This package removes those before the review
// is persisted.
//
// # Pipeline
//
// Pipeline.Run processes candidates in a single ordered pass. Each candidate
// is checked, in order, against:
//
//  1. A minimum length floor (empty_or_short)
//  2. Triviality patterns: polar yes/no markers and bare "what is X" asks (trivial)
//  3. Keyword overlap with the submission and attached file text (already_answered)
//  4. Exact or near match against questions asked on earlier runs (duplicate_surface)
//  5. Keyword overlap with candidates already accepted in this pass (duplicate_within_batch)
//
// Accepted candidates join a running keyword pool, so within-batch
// deduplication is order dependent: the first of two near-duplicates wins.
// Reversing the input order changes which one survives. The pipeline is pure;
// it never mutates its inputs.
//
// # Similarity model
//
// All similarity decisions use the asymmetric overlap ratio
// |query ∩ reference| / |query|: "how much of this question's vocabulary is
// already covered", not symmetric similarity. Keywords are normalized tokens
// longer than 3 runes, so short function words never count as evidence.
//
// # Configuration
//
// The thresholds are heuristics, not ground truth, and are exposed through
// Config rather than hard-coded. DefaultConfig is tuned so that heavy
// vocabulary overlap (the submission names the exact technology a question
// asks about) triggers already_answered, while a passing mention does not.
// See Config for REVIEWD_FILTER_* environment overrides.
package filter
