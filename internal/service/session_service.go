package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/config"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/repository"
)

// SessionService drives a candidate through NOT_STARTED, IN_PROGRESS and COMPLETED.
type SessionService struct {
	cfg        config.ExamConfig
	candidates CandidateStore
	slots      SlotStore
	questions  QuestionStore
	timer      *TimerService
	rnd        *Randomizer
	notifier   CompletionNotifier
	log        zerolog.Logger
	now        func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg config.ExamConfig,
	candidates CandidateStore,
	slots SlotStore,
	questions QuestionStore,
	timer *TimerService,
	rnd *Randomizer,
	notifier CompletionNotifier,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:        cfg,
		candidates: candidates,
		slots:      slots,
		questions:  questions,
		timer:      timer,
		rnd:        rnd,
		notifier:   notifier,
		log:        log.With().Str("component", "session_service").Logger(),
		now:        time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

func (s *SessionService) candidate(ctx context.Context, id int64, op model.Operation) (*model.Candidate, error) {
	c, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if !c.Status.Allows(op) {
		return c, ErrInvalidState
	}
	return c, nil
}

func (s *SessionService) slot(ctx context.Context, candidateID int64, ordinal int) (*model.QuestionSlot, error) {
	if ordinal < 1 || ordinal > s.cfg.TotalQuestions {
		return nil, ErrOutOfRange
	}
	slot, err := s.slots.Get(ctx, candidateID, ordinal)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOutOfRange
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot.Submitted() {
		return nil, ErrAlreadyAnswered
	}
	return slot, nil
}

// StartTest draws the candidate's questions and moves them to IN_PROGRESS.
// Slots and the status change commit together or not at all.
func (s *SessionService) StartTest(ctx context.Context, candidateID int64) (*model.TestStarted, error) {
	if _, err := s.candidate(ctx, candidateID, model.OpStartTest); err != nil {
		return nil, err
	}

	pool, err := s.questions.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	picked, err := s.rnd.SelectSubset(pool, s.cfg.TotalQuestions)
	if err != nil {
		return nil, err
	}

	limit := int(s.cfg.QuestionTimeLimit / time.Second)
	slots := make([]model.QuestionSlot, len(picked))
	for i, q := range picked {
		slots[i] = model.QuestionSlot{
			CandidateID:       candidateID,
			Ordinal:           i + 1,
			QuestionID:        q.ID,
			OptionPermutation: s.rnd.PermuteOptions(),
			TimeLimitSeconds:  limit,
		}
	}

	startedAt := s.now()
	if err := s.slots.BeginTest(ctx, candidateID, slots, startedAt); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("begin test: %w", err)
	}

	s.log.Info().Int64("candidate_id", candidateID).Int("questions", len(slots)).Msg("Test started")
	return &model.TestStarted{
		TotalQuestions:       len(slots),
		TimeLimitPerQuestion: limit,
		StartedAt:            startedAt,
	}, nil
}

// GetQuestion returns the slot at ordinal and arms its timer on first view.
// An expired slot is closed as unanswered and ErrTimeExpired is returned.
func (s *SessionService) GetQuestion(ctx context.Context, candidateID int64, ordinal int) (*model.QuestionView, error) {
	if _, err := s.candidate(ctx, candidateID, model.OpGetQuestion); err != nil {
		return nil, err
	}
	slot, err := s.slot(ctx, candidateID, ordinal)
	if err != nil {
		return nil, err
	}

	rec, expired, err := s.resolveTimer(ctx, slot, true)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, s.expire(ctx, slot)
	}

	return &model.QuestionView{
		Ordinal:          slot.Ordinal,
		TotalQuestions:   s.cfg.TotalQuestions,
		ContentRef:       slot.ContentRef,
		Options:          slot.OptionPermutation[:],
		TimeLimitSeconds: slot.TimeLimitSeconds,
		RemainingSeconds: s.timer.Remaining(rec),
	}, nil
}

// resolveTimer finds the running timer of an open slot. With arm set, a slot
// that was never presented gets its timer started; without it such a slot
// counts as expired. A record lost from Redis is rebuilt from presented_at.
func (s *SessionService) resolveTimer(ctx context.Context, slot *model.QuestionSlot, arm bool) (TimerRecord, bool, error) {
	limit := time.Duration(slot.TimeLimitSeconds) * time.Second

	st, err := s.timer.Check(ctx, slot.CandidateID, slot.Ordinal)
	if err != nil {
		return TimerRecord{}, false, err
	}
	if st.Found {
		return TimerRecord{StartedAt: st.StartedAt, Duration: limit}, st.Expired, nil
	}

	if slot.PresentedAt == nil {
		if !arm {
			return TimerRecord{}, true, nil
		}
		rec, err := s.timer.Start(ctx, slot.CandidateID, slot.Ordinal, limit)
		if err != nil {
			return TimerRecord{}, false, err
		}
		if _, err := s.slots.MarkPresented(ctx, slot.CandidateID, slot.Ordinal, rec.StartedAt); err != nil {
			return TimerRecord{}, false, fmt.Errorf("mark presented: %w", err)
		}
		return rec, false, nil
	}

	if !s.now().Before(slot.PresentedAt.Add(limit)) {
		return TimerRecord{}, true, nil
	}
	rec, err := s.timer.Restore(ctx, slot.CandidateID, slot.Ordinal, *slot.PresentedAt, limit)
	if err != nil {
		return TimerRecord{}, false, err
	}
	s.log.Warn().Int64("candidate_id", slot.CandidateID).Int("ordinal", slot.Ordinal).Msg("Timer record restored from presented_at")
	return rec, s.timer.Remaining(rec) == 0, nil
}

// expire closes a slot whose deadline passed. The write is committed before
// ErrTimeExpired is returned, so a retry observes ErrAlreadyAnswered.
func (s *SessionService) expire(ctx context.Context, slot *model.QuestionSlot) error {
	incorrect := false
	err := s.slots.Close(ctx, slot.CandidateID, slot.Ordinal, model.SlotOutcome{
		IsCorrect:        &incorrect,
		TimeTakenSeconds: slot.TimeLimitSeconds,
		SubmittedAt:      s.now(),
		AutoSubmitted:    true,
	})
	if err != nil {
		return s.closeFailed(ctx, slot, err)
	}
	s.clearTimer(ctx, slot.CandidateID, slot.Ordinal)
	s.log.Info().Int64("candidate_id", slot.CandidateID).Int("ordinal", slot.Ordinal).Msg("Question auto-submitted on timeout")
	return ErrTimeExpired
}

// closeFailed translates a lost conditional close into the error the caller should see.
func (s *SessionService) closeFailed(ctx context.Context, slot *model.QuestionSlot, err error) error {
	if !errors.Is(err, repository.ErrStaleState) {
		return fmt.Errorf("close slot: %w", err)
	}
	current, getErr := s.slots.Get(ctx, slot.CandidateID, slot.Ordinal)
	if getErr == nil && current.Submitted() {
		return ErrAlreadyAnswered
	}
	return ErrInvalidState
}

func (s *SessionService) clearTimer(ctx context.Context, candidateID int64, ordinal int) {
	if err := s.timer.Clear(ctx, candidateID, ordinal); err != nil {
		s.log.Warn().Err(err).Int64("candidate_id", candidateID).Int("ordinal", ordinal).Msg("Failed to clear timer")
	}
}

// SubmitAnswer grades and records an answer. A late answer is never accepted:
// it closes the slot as unanswered and returns ErrTimeExpired.
func (s *SessionService) SubmitAnswer(ctx context.Context, candidateID int64, req model.SubmitAnswerRequest) (*model.SubmitAnswerResult, error) {
	if _, err := s.candidate(ctx, candidateID, model.OpSubmitAnswer); err != nil {
		return nil, err
	}
	if req.QuestionNumber < 1 || req.QuestionNumber > s.cfg.TotalQuestions {
		return nil, ErrOutOfRange
	}
	selected := model.OptionLabel(req.SelectedOption)
	if !selected.Valid() {
		return nil, fmt.Errorf("%w: option %q", ErrInvalidSubmission, req.SelectedOption)
	}
	slot, err := s.slot(ctx, candidateID, req.QuestionNumber)
	if err != nil {
		return nil, err
	}

	rec, expired, err := s.resolveTimer(ctx, slot, false)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, s.expire(ctx, slot)
	}

	if req.TimeTakenSeconds < 0 || req.TimeTakenSeconds > slot.TimeLimitSeconds {
		return nil, fmt.Errorf("%w: time_taken_seconds %d outside 0..%d",
			ErrInvalidSubmission, req.TimeTakenSeconds, slot.TimeLimitSeconds)
	}
	taken := s.timer.Elapsed(rec)
	if s.cfg.TimingSource == config.TimingSourceClient {
		taken = req.TimeTakenSeconds
	}

	correct := Grade(slot.OptionPermutation, selected, slot.CorrectOption)
	err = s.slots.Close(ctx, candidateID, slot.Ordinal, model.SlotOutcome{
		SelectedOption:   &selected,
		IsCorrect:        &correct,
		TimeTakenSeconds: taken,
		SubmittedAt:      s.now(),
	})
	if err != nil {
		return nil, s.closeFailed(ctx, slot, err)
	}
	s.clearTimer(ctx, candidateID, slot.Ordinal)

	res := &model.SubmitAnswerResult{
		QuestionNumber: slot.Ordinal,
		Submitted:      true,
		IsLast:         slot.Ordinal >= s.cfg.TotalQuestions,
	}
	if !res.IsLast {
		next := slot.Ordinal + 1
		res.NextQuestionNumber = &next
	}
	return res, nil
}

// CompleteTest ends an in-progress test at the candidate's request.
// A second call fails with ErrInvalidState.
func (s *SessionService) CompleteTest(ctx context.Context, candidateID int64, reason model.CompletionReason) (*model.ResultSummary, error) {
	if _, err := s.candidate(ctx, candidateID, model.OpCompleteTest); err != nil {
		return nil, err
	}
	return s.ForceComplete(ctx, candidateID, reason)
}

// ForceComplete closes every open slot and moves the candidate to COMPLETED.
// Exactly one of several concurrent callers succeeds; the rest get ErrInvalidState.
func (s *SessionService) ForceComplete(ctx context.Context, candidateID int64, reason model.CompletionReason) (*model.ResultSummary, error) {
	c, slots, err := s.slots.CompleteTest(ctx, candidateID, reason, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("complete test: %w", err)
	}
	return s.FinishCompletion(ctx, c, slots, reason), nil
}

// FinishCompletion runs the side effects of a committed completion: it clears
// the question timers, builds the summary from the committed rows and queues
// the notice. Failures are logged, since the completion itself already stands.
func (s *SessionService) FinishCompletion(ctx context.Context, c *model.Candidate, slots []model.QuestionSlot, reason model.CompletionReason) *model.ResultSummary {
	if err := s.timer.ClearAll(ctx, c.ID, s.cfg.TotalQuestions); err != nil {
		s.log.Warn().Err(err).Int64("candidate_id", c.ID).Msg("Failed to clear timers")
	}

	summary, err := BuildSummary(c, slots)
	if err != nil {
		s.log.Error().Err(err).Int64("candidate_id", c.ID).Msg("Failed to build result summary")
		return nil
	}

	s.log.Info().
		Int64("candidate_id", c.ID).
		Str("reason", string(reason)).
		Int("correct", summary.CorrectAnswers).
		Msg("Test completed")

	notice := model.CompletionNotice{
		CandidateID: c.ID,
		Email:       c.Email,
		Correct:     summary.CorrectAnswers,
		Total:       summary.TotalQuestions,
		Reason:      reason,
	}
	if err := s.notifier.Notify(ctx, notice); err != nil {
		s.log.Error().Err(err).Int64("candidate_id", c.ID).Msg("Failed to enqueue completion notice")
	}
	return summary
}

// GetStatus projects the candidate's progress. It never mutates state.
func (s *SessionService) GetStatus(ctx context.Context, candidateID int64) (*model.TestStatus, error) {
	c, err := s.candidate(ctx, candidateID, model.OpGetStatus)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	st := &model.TestStatus{
		Status:         c.Status,
		TotalQuestions: s.cfg.TotalQuestions,
		BlurCount:      c.BlurCount,
		WarningCount:   c.WarningCount,
	}
	if len(slots) > 0 {
		st.TotalQuestions = len(slots)
	}
	for _, slot := range slots {
		if slot.Submitted() {
			st.QuestionsAnswered++
		} else if st.CurrentQuestionNumber == nil {
			ordinal := slot.Ordinal
			st.CurrentQuestionNumber = &ordinal
		}
	}
	if c.StartedAt != nil {
		end := s.now()
		if c.CompletedAt != nil {
			end = *c.CompletedAt
		}
		elapsed := max(0, int(end.Sub(*c.StartedAt)/time.Second))
		st.TimeElapsedSeconds = &elapsed
	}
	return st, nil
}
