package model

import "time"

// QuestionSlot is one assigned question at one ordinal position of a candidate's test.
type QuestionSlot struct {
	CandidateID       int64          `json:"candidate_id"`
	Ordinal           int            `json:"ordinal"`
	QuestionID        int64          `json:"question_id"`
	OptionPermutation [4]OptionLabel `json:"option_permutation"`
	SelectedOption    *OptionLabel   `json:"selected_option,omitempty"`
	IsCorrect         *bool          `json:"is_correct,omitempty"`
	TimeLimitSeconds  int            `json:"time_limit_seconds"`
	TimeTakenSeconds  *int           `json:"time_taken_seconds,omitempty"`
	PresentedAt       *time.Time     `json:"presented_at,omitempty"`
	SubmittedAt       *time.Time     `json:"submitted_at,omitempty"`
	AutoSubmitted     bool           `json:"auto_submitted"`

	// CorrectOption is the canonical answer joined from the question bank; never serialized.
	CorrectOption OptionLabel `json:"-"`
	ContentRef    string      `json:"-"`
}

// Submitted reports whether the slot is closed.
func (s *QuestionSlot) Submitted() bool {
	return s.SubmittedAt != nil
}

// SlotOutcome is the closing write applied to an open slot.
type SlotOutcome struct {
	SelectedOption   *OptionLabel
	IsCorrect        *bool
	TimeTakenSeconds int
	SubmittedAt      time.Time
	AutoSubmitted    bool
}

// QuestionView is what a candidate sees for the current slot.
type QuestionView struct {
	Ordinal          int           `json:"question_number"`
	TotalQuestions   int           `json:"total_questions"`
	ContentRef       string        `json:"content_ref"`
	Options          []OptionLabel `json:"options"`
	TimeLimitSeconds int           `json:"time_limit_seconds"`
	RemainingSeconds int           `json:"remaining_seconds"`
}

// SubmitAnswerRequest is the payload for answering one slot.
type SubmitAnswerRequest struct {
	QuestionNumber   int    `json:"question_number" binding:"required,min=1"`
	SelectedOption   string `json:"selected_option" binding:"required,option_label"`
	TimeTakenSeconds int    `json:"time_taken_seconds" binding:"min=0"`
}

// SubmitAnswerResult tells the caller what comes next.
type SubmitAnswerResult struct {
	QuestionNumber     int  `json:"question_number"`
	Submitted          bool `json:"submitted"`
	IsLast             bool `json:"is_last"`
	NextQuestionNumber *int `json:"next_question_number"`
}

// CompleteTestRequest is the payload for finishing a test early or at the end.
type CompleteTestRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=50"`
}

// TestStatus is the read-only projection of a candidate's progress.
type TestStatus struct {
	Status                CandidateStatus `json:"status"`
	CurrentQuestionNumber *int            `json:"current_question_number"`
	TotalQuestions        int             `json:"total_questions"`
	QuestionsAnswered     int             `json:"questions_answered"`
	BlurCount             int             `json:"blur_count"`
	WarningCount          int             `json:"warnings_issued"`
	TimeElapsedSeconds    *int            `json:"time_elapsed_seconds"`
}

// TestStarted is returned when a candidate starts a test.
type TestStarted struct {
	TotalQuestions       int       `json:"total_questions"`
	TimeLimitPerQuestion int       `json:"time_limit_per_question"`
	StartedAt            time.Time `json:"started_at"`
}
