package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/repository"
)

// Completer runs the side effects of a committed completion. Implemented by
// SessionService.
type Completer interface {
	FinishCompletion(ctx context.Context, c *model.Candidate, slots []model.QuestionSlot, reason model.CompletionReason) *model.ResultSummary
}

// ProctorService accumulates anti-cheat signals into warnings and ends the
// test once the warning threshold is reached.
type ProctorService struct {
	maxWarnings int
	candidates  CandidateStore
	audit       AuditSink
	completer   Completer
	log         zerolog.Logger
	now         func() time.Time
}

// NewProctorService creates a new ProctorService.
func NewProctorService(maxWarnings int, candidates CandidateStore, audit AuditSink, completer Completer, log zerolog.Logger) *ProctorService {
	return &ProctorService{
		maxWarnings: maxWarnings,
		candidates:  candidates,
		audit:       audit,
		completer:   completer,
		log:         log.With().Str("component", "proctor_service").Logger(),
		now:         time.Now,
	}
}

// classify returns the blur and warning increments for an event kind.
func classify(kind string) (blur, warnings int) {
	switch kind {
	case model.ProctorKindBlur:
		return 1, 1
	case model.ProctorKindCopyAttempt, model.ProctorKindRightClick, model.ProctorKindDevtools:
		return 0, 1
	}
	return 0, 0
}

// RecordEvent appends the event to the audit log and applies its warning
// weight. The increment and the threshold completion commit together, so exactly
// one event observes the crossing and a failed write leaves no partial state.
func (s *ProctorService) RecordEvent(ctx context.Context, candidateID int64, kind string, details *string, meta model.ProctorEventMeta) (*model.ProctorEventResult, error) {
	c, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if !c.Status.Allows(model.OpRecordEvent) {
		return nil, ErrInvalidState
	}

	ev := model.ProctorEvent{
		ID:              uuid.New(),
		CandidateID:     candidateID,
		Kind:            kind,
		Details:         details,
		ClientTimestamp: meta.ClientTimestamp,
		IPAddress:       meta.IPAddress,
		UserAgent:       meta.UserAgent,
		RecordedAt:      s.now(),
	}
	if err := s.audit.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("append audit event: %w", err)
	}

	res := &model.ProctorEventResult{
		Logged:       true,
		WarningCount: c.WarningCount,
		MaxWarnings:  s.maxWarnings,
	}

	blur, warnings := classify(kind)
	if warnings == 0 {
		return res, nil
	}

	out, err := s.candidates.IncrementWarnings(ctx, candidateID, blur, warnings, s.maxWarnings, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("increment warnings: %w", err)
	}
	res.WarningCount = out.Candidate.WarningCount
	if !out.Completed {
		return res, nil
	}

	s.log.Warn().
		Int64("candidate_id", candidateID).
		Int("warnings", out.Candidate.WarningCount).
		Str("kind", kind).
		Msg("Warning threshold reached, test completed")

	s.completer.FinishCompletion(ctx, &out.Candidate, out.Slots, model.CompletionReasonWarningThreshold)
	res.AutoSubmitted = true
	return res, nil
}
