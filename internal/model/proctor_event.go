package model

import (
	"time"

	"github.com/google/uuid"
)

// Recognized proctoring event kinds. Other kinds are logged without counting.
const (
	ProctorKindBlur        = "blur"
	ProctorKindCopyAttempt = "copy_attempt"
	ProctorKindRightClick  = "right_click"
	ProctorKindDevtools    = "devtools"
)

// ProctorEvent is an append-only audit record of an anti-cheat signal.
type ProctorEvent struct {
	ID              uuid.UUID  `json:"id"`
	CandidateID     int64      `json:"candidate_id"`
	Kind            string     `json:"kind"`
	Details         *string    `json:"details,omitempty"`
	ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`
	IPAddress       string     `json:"ip_address,omitempty"`
	UserAgent       string     `json:"user_agent,omitempty"`
	RecordedAt      time.Time  `json:"recorded_at"`
}

// ProctorEventRequest is the payload a client sends for one anti-cheat signal.
type ProctorEventRequest struct {
	EventType string     `json:"event_type" binding:"required,min=1,max=50"`
	Details   *string    `json:"details" binding:"omitempty,max=1000"`
	Timestamp *time.Time `json:"timestamp"`
}

// ProctorEventMeta carries request context recorded with an event.
type ProctorEventMeta struct {
	ClientTimestamp *time.Time
	IPAddress       string
	UserAgent       string
}

// ProctorEventResult reports the warning state after an event.
type ProctorEventResult struct {
	Logged        bool `json:"logged"`
	WarningCount  int  `json:"warning_count"`
	MaxWarnings   int  `json:"max_warnings"`
	AutoSubmitted bool `json:"should_auto_submit"`
}

// WarningOutcome is the committed result of applying an event's warning weight.
// Slots is set only when the increment reached the limit and completed the test.
type WarningOutcome struct {
	Candidate Candidate
	Completed bool
	Slots     []QuestionSlot
}
