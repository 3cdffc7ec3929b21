package types

import "time"

// ReviewEventType identifies a lifecycle transition in the audit trail
type ReviewEventType string

const (
	EventTriggered ReviewEventType = "triggered"
	EventCompleted ReviewEventType = "completed"
	EventFailed    ReviewEventType = "failed"
)

// ReviewEvent is one entry in a submission's review audit trail
type ReviewEvent struct {
	ID           int64           `json:"id"`
	SubmissionID string          `json:"submission_id"`
	EventType    ReviewEventType `json:"event_type"`
	Actor        string          `json:"actor"`
	Comment      string          `json:"comment,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
