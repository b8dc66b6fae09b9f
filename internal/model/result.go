package model

import "time"

// ResultSummary aggregates a candidate's slots.
type ResultSummary struct {
	CandidateID        int64     `json:"candidate_id"`
	Email              string    `json:"user_email"`
	TotalQuestions     int       `json:"total_questions"`
	CorrectAnswers     int       `json:"correct_answers"`
	IncorrectAnswers   int       `json:"incorrect_answers"`
	Unanswered         int       `json:"unanswered"`
	AccuracyPercentage float64   `json:"accuracy_percentage"`
	TotalTimeSeconds   int       `json:"total_time_seconds"`
	BlurCount          int       `json:"blur_count"`
	WarningCount       int       `json:"warnings_issued"`
	CompletedAt        time.Time `json:"completed_at"`
	// CompletedAtFallback is set when CompletedAt is the creation time because
	// the candidate never formally completed.
	CompletedAtFallback bool `json:"completed_at_fallback"`
}

// StatusBreakdown counts candidates per status.
type StatusBreakdown struct {
	NotStarted int `json:"not_started"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Blocked    int `json:"blocked"`
}

// Total returns the number of candidates across all statuses.
func (b StatusBreakdown) Total() int {
	return b.NotStarted + b.InProgress + b.Completed + b.Blocked
}

// BulkResults is the administrator's view over many candidates.
type BulkResults struct {
	TotalCandidates int             `json:"total_candidates"`
	Breakdown       StatusBreakdown `json:"status_breakdown"`
	Results         []ResultSummary `json:"results"`
}

// Statistics is the platform-wide aggregate.
type Statistics struct {
	TotalCandidates        int             `json:"total_users"`
	TotalActiveQuestions   int             `json:"total_active_questions"`
	TotalSlots             int             `json:"total_test_sessions"`
	AverageAccuracy        float64         `json:"average_accuracy"`
	AverageTimePerQuestion float64         `json:"average_time_per_question"`
	Breakdown              StatusBreakdown `json:"status_breakdown"`
}

// CompletionNotice is handed to the notification queue when a test ends.
type CompletionNotice struct {
	CandidateID int64            `json:"candidate_id"`
	Email       string           `json:"email"`
	Correct     int              `json:"correct"`
	Total       int              `json:"total"`
	Reason      CompletionReason `json:"reason"`
	Attempts    int              `json:"attempts"`
}

// SlotAggregates are platform-wide slot totals used by Statistics.
type SlotAggregates struct {
	TotalSlots int
	// AverageCorrect is the mean of is_correct over graded slots, in [0, 1].
	AverageCorrect   float64
	AverageTimeTaken float64
}
