package service

import (
	"context"
	"time"

	"github.com/stemsi/proctored-mcq/internal/model"
)

// CandidateStore is the candidate persistence the test-taking path needs.
type CandidateStore interface {
	GetByID(ctx context.Context, id int64) (*model.Candidate, error)
	GetByEmail(ctx context.Context, email string) (*model.Candidate, error)
	IncrementWarnings(ctx context.Context, id int64, blur, warnings, limit int, at time.Time) (*model.WarningOutcome, error)
}

// CandidateAdminStore adds the administrative candidate operations.
type CandidateAdminStore interface {
	CandidateStore
	Create(ctx context.Context, email string) (*model.Candidate, bool, error)
	List(ctx context.Context, status *model.CandidateStatus, limit, offset int) ([]model.Candidate, int, error)
	DeleteByEmail(ctx context.Context, email string) error
	Block(ctx context.Context, id int64) error
	Reset(ctx context.Context, id int64) error
	StatusBreakdown(ctx context.Context) (model.StatusBreakdown, error)
}

// SlotStore persists question slots and the status moves that must commit with them.
type SlotStore interface {
	BeginTest(ctx context.Context, candidateID int64, slots []model.QuestionSlot, startedAt time.Time) error
	Get(ctx context.Context, candidateID int64, ordinal int) (*model.QuestionSlot, error)
	ListByCandidate(ctx context.Context, candidateID int64) ([]model.QuestionSlot, error)
	ListByCandidates(ctx context.Context, candidateIDs []int64) (map[int64][]model.QuestionSlot, error)
	MarkPresented(ctx context.Context, candidateID int64, ordinal int, at time.Time) (time.Time, error)
	Close(ctx context.Context, candidateID int64, ordinal int, out model.SlotOutcome) error
	CompleteTest(ctx context.Context, candidateID int64, reason model.CompletionReason, at time.Time) (*model.Candidate, []model.QuestionSlot, error)
	Aggregates(ctx context.Context) (model.SlotAggregates, error)
}

// QuestionStore is the question bank.
type QuestionStore interface {
	ListActive(ctx context.Context) ([]model.Question, error)
	CountActive(ctx context.Context) (int, error)
	List(ctx context.Context, activeOnly bool, limit int) ([]model.Question, error)
	Create(ctx context.Context, q *model.Question) error
	Deactivate(ctx context.Context, id int64) error
}

// AuditSink appends proctoring events to the audit log.
type AuditSink interface {
	Append(ctx context.Context, ev model.ProctorEvent) error
}

// CompletionNotifier hands a finished test off for asynchronous notification.
type CompletionNotifier interface {
	Notify(ctx context.Context, n model.CompletionNotice) error
}

// OTPSender delivers a one-time passcode to an email address.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
}
