package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key holding the JTI of a candidate's active login.
func (r *CacheKeyStruct) CandidateSessionKey(candidateID int64) string {
	return fmt.Sprintf("login:%d", candidateID)
}

// QuestionTimerKey returns the cache key for the timer of one question slot.
func (r *CacheKeyStruct) QuestionTimerKey(candidateID int64, ordinal int) string {
	return fmt.Sprintf("timer:%d:%d", candidateID, ordinal)
}

// OTPKey returns the cache key for a pending one-time passcode.
func (r *CacheKeyStruct) OTPKey(email string) string {
	return fmt.Sprintf("otp:%s", email)
}

// RateLimitKey returns the fixed-window counter key for a rate-limited identifier.
func (r *CacheKeyStruct) RateLimitKey(identifier string) string {
	return fmt.Sprintf("ratelimit:%s", identifier)
}

var CacheKey = NewCacheKeyStruct()
