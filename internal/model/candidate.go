package model

import "time"

// CandidateStatus enumerates the lifecycle states of a candidate's test.
type CandidateStatus string

const (
	CandidateStatusNotStarted CandidateStatus = "NOT_STARTED"
	CandidateStatusInProgress CandidateStatus = "IN_PROGRESS"
	CandidateStatusCompleted  CandidateStatus = "COMPLETED"
	CandidateStatusBlocked    CandidateStatus = "BLOCKED"
)

// Valid reports whether s is one of the known statuses.
func (s CandidateStatus) Valid() bool {
	switch s {
	case CandidateStatusNotStarted, CandidateStatusInProgress, CandidateStatusCompleted, CandidateStatusBlocked:
		return true
	}
	return false
}

// CompletionReason records why a test ended.
type CompletionReason string

const (
	CompletionReasonCandidate        CompletionReason = "user_completed"
	CompletionReasonWarningThreshold CompletionReason = "warning_threshold"
	CompletionReasonTimeout          CompletionReason = "timeout"
)

// Candidate is a whitelisted test taker.
type Candidate struct {
	ID               int64             `json:"id"`
	Email            string            `json:"email"`
	Status           CandidateStatus   `json:"status"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CompletionReason *CompletionReason `json:"completion_reason,omitempty"`
	BlurCount        int               `json:"blur_count"`
	WarningCount     int               `json:"warning_count"`
	CreatedAt        time.Time         `json:"created_at"`
}

// WhitelistRequest is the payload for adding a candidate email.
type WhitelistRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// OTPRequest is the payload for requesting a one-time passcode.
type OTPRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// OTPVerifyRequest is the payload for exchanging a passcode for a token.
type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
	OTP   string `json:"otp" binding:"required,numeric,min=4,max=10"`
}

// OTPVerifyResponse is returned after a successful passcode exchange.
type OTPVerifyResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	Candidate Candidate `json:"candidate"`
}

// AdminLoginRequest is the payload for administrator authentication.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}
