package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/model"
)

// idleCompleter drops the post-commit side effects of a completion.
type idleCompleter struct{ calls int }

func (c *idleCompleter) FinishCompletion(context.Context, *model.Candidate, []model.QuestionSlot, model.CompletionReason) *model.ResultSummary {
	c.calls++
	return nil
}

func newProctorFixture(t *testing.T, totalQuestions, maxWarnings int) (*sessionFixture, *ProctorService) {
	t.Helper()
	f := newSessionFixture(t, totalQuestions, 10)
	p := NewProctorService(maxWarnings, f.store.Candidates(), f.store.Audit(), f.session, zerolog.Nop())
	p.now = f.clock.Now
	return f, p
}

func TestClassify(t *testing.T) {
	tests := []struct {
		kind           string
		blur, warnings int
	}{
		{model.ProctorKindBlur, 1, 1},
		{model.ProctorKindCopyAttempt, 0, 1},
		{model.ProctorKindRightClick, 0, 1},
		{model.ProctorKindDevtools, 0, 1},
		{"focus", 0, 0},
		{"", 0, 0},
	}
	for _, tt := range tests {
		blur, warnings := classify(tt.kind)
		if blur != tt.blur || warnings != tt.warnings {
			t.Errorf("classify(%q) = %d,%d want %d,%d", tt.kind, blur, warnings, tt.blur, tt.warnings)
		}
	}
}

// Two blur events with a threshold of two complete the test.
func TestRecordEventThresholdAutoSubmits(t *testing.T) {
	ctx := context.Background()
	f, p := newProctorFixture(t, 3, 2)
	id := f.started(t, "a@example.com")
	if _, err := f.session.GetQuestion(ctx, id, 1); err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}

	res, err := p.RecordEvent(ctx, id, model.ProctorKindBlur, nil, model.ProctorEventMeta{})
	if err != nil {
		t.Fatalf("first event: %v", err)
	}
	if !res.Logged || res.WarningCount != 1 || res.MaxWarnings != 2 || res.AutoSubmitted {
		t.Fatalf("first result = %+v", res)
	}

	res, err = p.RecordEvent(ctx, id, model.ProctorKindBlur, nil, model.ProctorEventMeta{})
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if res.WarningCount != 2 || !res.AutoSubmitted {
		t.Fatalf("second result = %+v", res)
	}

	c, _ := f.store.Candidates().GetByID(ctx, id)
	if c.Status != model.CandidateStatusCompleted || c.BlurCount != 2 || c.WarningCount != 2 {
		t.Fatalf("candidate = %+v", c)
	}
	if c.CompletionReason == nil || *c.CompletionReason != model.CompletionReasonWarningThreshold {
		t.Fatalf("completion reason = %v", c.CompletionReason)
	}
	for _, s := range f.store.SlotsOf(id) {
		if !s.Submitted() || !s.AutoSubmitted {
			t.Fatalf("slot %d not auto-submitted: %+v", s.Ordinal, s)
		}
	}
	if n := len(f.store.Events()); n != 2 {
		t.Fatalf("audit events = %d, want 2", n)
	}

	if _, err := p.RecordEvent(ctx, id, model.ProctorKindBlur, nil, model.ProctorEventMeta{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("event after completion err = %v, want ErrInvalidState", err)
	}
}

func TestRecordEventUnknownKindIsLoggedOnly(t *testing.T) {
	ctx := context.Background()
	f, p := newProctorFixture(t, 2, 2)
	id := f.started(t, "a@example.com")

	details := "window resized"
	res, err := p.RecordEvent(ctx, id, "resize", &details, model.ProctorEventMeta{IPAddress: "10.0.0.1", UserAgent: "ua"})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if !res.Logged || res.WarningCount != 0 || res.AutoSubmitted {
		t.Fatalf("result = %+v", res)
	}
	events := f.store.Events()
	if len(events) != 1 || events[0].Kind != "resize" || *events[0].Details != details || events[0].IPAddress != "10.0.0.1" {
		t.Fatalf("events = %+v", events)
	}
	if !events[0].RecordedAt.Equal(f.clock.Now()) {
		t.Fatalf("recorded_at = %v", events[0].RecordedAt)
	}
}

func TestRecordEventRequiresInProgress(t *testing.T) {
	ctx := context.Background()
	f, p := newProctorFixture(t, 2, 2)
	c := f.store.AddCandidate("idle@example.com")

	if _, err := p.RecordEvent(ctx, c.ID, model.ProctorKindBlur, nil, model.ProctorEventMeta{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	if _, err := p.RecordEvent(ctx, 404, model.ProctorKindBlur, nil, model.ProctorEventMeta{}); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("err = %v, want ErrCandidateNotFound", err)
	}
	if len(f.store.Events()) != 0 {
		t.Fatal("rejected events were logged")
	}
}

// Concurrent events never leave the candidate in progress past the threshold,
// and every increment lands on a distinct count.
func TestRecordEventConcurrentThreshold(t *testing.T) {
	ctx := context.Background()
	f, p := newProctorFixture(t, 3, 3)
	id := f.started(t, "a@example.com")

	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := make(map[int]int)
	autoSubmitted := 0
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.RecordEvent(ctx, id, model.ProctorKindCopyAttempt, nil, model.ProctorEventMeta{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, ErrInvalidState) {
					t.Errorf("unexpected err: %v", err)
				}
				return
			}
			counts[res.WarningCount]++
			if res.AutoSubmitted {
				autoSubmitted++
			}
		}()
	}
	wg.Wait()

	c, _ := f.store.Candidates().GetByID(ctx, id)
	if c.Status != model.CandidateStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", c.Status)
	}
	if c.WarningCount != 3 {
		t.Fatalf("warning_count = %d, want 3", c.WarningCount)
	}
	for n, seen := range counts {
		if seen != 1 {
			t.Fatalf("warning count %d observed %d times", n, seen)
		}
	}
	if autoSubmitted != 1 {
		t.Fatalf("auto-submit reported %d times, want 1", autoSubmitted)
	}
	if counts[3] != 1 {
		t.Fatal("the crossing event was not observed")
	}
}

// The crossing event completes the test in the same write as the increment,
// so the candidate is locked out even if the follow-up work never runs.
func TestRecordEventThresholdCompletesWithoutCompleter(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, 3, 10)
	completer := &idleCompleter{}
	p := NewProctorService(2, f.store.Candidates(), f.store.Audit(), completer, zerolog.Nop())
	id := f.started(t, "a@example.com")

	for i := 1; i <= 2; i++ {
		res, err := p.RecordEvent(ctx, id, model.ProctorKindBlur, nil, model.ProctorEventMeta{})
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if res.WarningCount != i || res.AutoSubmitted != (i == 2) {
			t.Fatalf("event %d result = %+v", i, res)
		}
	}
	if completer.calls != 1 {
		t.Fatalf("completer called %d times, want 1", completer.calls)
	}

	c, _ := f.store.Candidates().GetByID(ctx, id)
	if c.Status != model.CandidateStatusCompleted || c.WarningCount != 2 {
		t.Fatalf("candidate = %+v", c)
	}
	if _, err := f.session.GetQuestion(ctx, id, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("GetQuestion after threshold err = %v, want ErrInvalidState", err)
	}
	if _, err := f.session.SubmitAnswer(ctx, id, model.SubmitAnswerRequest{QuestionNumber: 1, SelectedOption: "A"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("SubmitAnswer after threshold err = %v, want ErrInvalidState", err)
	}
}

// A failed completing write rolls the increment back with it, so the event
// can be retried and the counter never passes the limit while in progress.
func TestRecordEventThresholdWriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f, p := newProctorFixture(t, 3, 2)
	id := f.started(t, "a@example.com")

	if _, err := p.RecordEvent(ctx, id, model.ProctorKindBlur, nil, model.ProctorEventMeta{}); err != nil {
		t.Fatalf("first event: %v", err)
	}

	reset := errors.New("db: connection reset")
	f.store.FailCompletion(reset)
	if _, err := p.RecordEvent(ctx, id, model.ProctorKindBlur, nil, model.ProctorEventMeta{}); !errors.Is(err, reset) {
		t.Fatalf("second event err = %v, want %v", err, reset)
	}
	c, _ := f.store.Candidates().GetByID(ctx, id)
	if c.Status != model.CandidateStatusInProgress || c.WarningCount != 1 || c.BlurCount != 1 {
		t.Fatalf("candidate after failed write = %+v", c)
	}
	if len(f.store.Notices()) != 0 {
		t.Fatal("notice sent for a rolled-back completion")
	}

	res, err := p.RecordEvent(ctx, id, model.ProctorKindBlur, nil, model.ProctorEventMeta{})
	if err != nil {
		t.Fatalf("retried event: %v", err)
	}
	if res.WarningCount != 2 || !res.AutoSubmitted {
		t.Fatalf("retried result = %+v", res)
	}
	c, _ = f.store.Candidates().GetByID(ctx, id)
	if c.Status != model.CandidateStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", c.Status)
	}
	notices := f.store.Notices()
	if len(notices) != 1 || notices[0].Reason != model.CompletionReasonWarningThreshold {
		t.Fatalf("notices = %+v", notices)
	}
}
