package types

import (
	"fmt"
	"strings"
	"time"
)

// CandidateQuestion is a single LLM-proposed review question before filtering.
// Produced by the generator; immutable once handed to the filter.
type CandidateQuestion struct {
	Question   string         `json:"question"`
	Type       QuestionType   `json:"type"`
	Difficulty Difficulty     `json:"difficulty"`
	Rationale  string         `json:"rationale,omitempty"`
	Source     QuestionSource `json:"source"`
}

// Validate checks if the candidate question has valid field values
func (q *CandidateQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question text is required")
	}
	if !q.Type.IsValid() {
		return fmt.Errorf("invalid question type: %s", q.Type)
	}
	if !q.Difficulty.IsValid() {
		return fmt.Errorf("invalid difficulty: %s", q.Difficulty)
	}
	if !q.Source.IsValid() {
		return fmt.Errorf("invalid question source: %s", q.Source)
	}
	return nil
}

// QuestionType categorizes what a review question probes
type QuestionType string

const (
	QuestionKnowledge    QuestionType = "knowledge"
	QuestionApplication  QuestionType = "application"
	QuestionReflection   QuestionType = "reflection"
	QuestionVerification QuestionType = "verification"
	QuestionAnalysis     QuestionType = "analysis"
	QuestionEvaluation   QuestionType = "evaluation"
	QuestionSynthesis    QuestionType = "synthesis"
)

// IsValid checks if the question type value is valid
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionKnowledge, QuestionApplication, QuestionReflection,
		QuestionVerification, QuestionAnalysis, QuestionEvaluation, QuestionSynthesis:
		return true
	}
	return false
}

// Difficulty grades a review question
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid checks if the difficulty value is valid
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuestionSource records which context source a question was derived from
type QuestionSource string

const (
	SourceSubmission QuestionSource = "submission"
	SourceFile       QuestionSource = "file"
	SourceModule     QuestionSource = "module"
	SourceTrail      QuestionSource = "trail"
)

// IsValid checks if the question source value is valid
func (s QuestionSource) IsValid() bool {
	switch s {
	case SourceSubmission, SourceFile, SourceModule, SourceTrail:
		return true
	}
	return false
}

// Analysis is the structured verdict produced by a completed review run.
// Immutable once written.
type Analysis struct {
	ShortVerdict string   `json:"short_verdict"`
	Strengths    []string `json:"strengths,omitempty"`
	Weaknesses   []string `json:"weaknesses,omitempty"`
	Gaps         []string `json:"gaps,omitempty"`
	RiskFlags    []string `json:"risk_flags,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// Validate checks if the analysis has valid field values
func (a *Analysis) Validate() error {
	if strings.TrimSpace(a.ShortVerdict) == "" {
		return fmt.Errorf("short_verdict is required")
	}
	if a.Confidence != nil && (*a.Confidence < 0.0 || *a.Confidence > 1.0) {
		return fmt.Errorf("confidence must be between 0.0 and 1.0 (got %.2f)", *a.Confidence)
	}
	return nil
}

// Coverage records which context sources the analysis actually drew upon
type Coverage struct {
	SubmissionTextUsed bool `json:"submission_text_used"`
	FileUsed           bool `json:"file_used"`
	ModuleUsed         bool `json:"module_used"`
	TrailUsed          bool `json:"trail_used"`
}

// ReviewStatus represents the current state of a review run
type ReviewStatus string

const (
	StatusPending    ReviewStatus = "pending"
	StatusProcessing ReviewStatus = "processing"
	StatusCompleted  ReviewStatus = "completed"
	StatusFailed     ReviewStatus = "failed"
)

// IsValid checks if the status value is valid
func (s ReviewStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the polling protocol
func (s ReviewStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Review is the persisted record of the latest analysis run for a submission.
// Exactly one submission owns at most one current review; a forced re-trigger
// replaces the run (new ID) rather than appending history.
type Review struct {
	ID           string               `json:"id"`
	SubmissionID string               `json:"submission_id"`
	Status       ReviewStatus         `json:"status"`
	Analysis     *Analysis            `json:"analysis,omitempty"`
	Questions    []*CandidateQuestion `json:"questions,omitempty"`
	Coverage     *Coverage            `json:"coverage,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
}

// Validate checks if the review has valid field values
func (r *Review) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.SubmissionID == "" {
		return fmt.Errorf("submission_id is required")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	if r.Status == StatusCompleted && r.Analysis == nil {
		return fmt.Errorf("completed review requires analysis")
	}
	if r.Status == StatusFailed && r.ErrorMessage == "" {
		return fmt.Errorf("failed review requires error_message")
	}
	if r.Status.IsTerminal() && r.FinishedAt == nil {
		return fmt.Errorf("terminal review requires finished_at")
	}
	return nil
}

// Submission holds the text context a review run draws upon. The texts are
// snapshots gathered by the platform at submission time; empty strings mean
// the source was unavailable.
type Submission struct {
	ID         string    `json:"id"`
	TrailID    string    `json:"trail_id"`
	StudentID  string    `json:"student_id,omitempty"`
	Text       string    `json:"text,omitempty"`
	FileText   string    `json:"file_text,omitempty"`
	ModuleText string    `json:"module_text,omitempty"`
	TrailText  string    `json:"trail_text,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks if the submission has valid field values
func (s *Submission) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.TrailID == "" {
		return fmt.Errorf("trail_id is required")
	}
	return nil
}
