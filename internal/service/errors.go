package service

import "errors"

// Test-session errors.
var (
	ErrInvalidState      = errors.New("operation not allowed in current test state")
	ErrOutOfRange        = errors.New("question number out of range")
	ErrAlreadyAnswered   = errors.New("question already answered")
	ErrTimeExpired       = errors.New("time limit for this question has expired")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrInsufficientPool  = errors.New("not enough active questions to build a test")
	ErrNoData            = errors.New("no test data for candidate")
)

// Account and access errors.
var (
	ErrCandidateNotFound  = errors.New("candidate not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrNotWhitelisted     = errors.New("email is not whitelisted")
	ErrOTPInvalid         = errors.New("invalid or expired otp")
	ErrOTPDelivery        = errors.New("failed to deliver otp")
	ErrRateLimited        = errors.New("too many requests")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session invalidated")
)
