// Package testutil provides in-memory stores, a Redis server and configuration
// for package tests. The stores apply the same conditional-write rules as the
// Postgres repositories and report the same repository errors.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/repository"
)

// Store holds all in-memory state behind one mutex, so multi-row writes are atomic.
type Store struct {
	mu         sync.Mutex
	nextID     int64
	candidates map[int64]*model.Candidate
	slots      map[int64][]model.QuestionSlot
	questions  []model.Question
	events     []model.ProctorEvent
	notices    []model.CompletionNotice
	now        func() time.Time

	failComplete error
	failReads    error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		candidates: make(map[int64]*model.Candidate),
		slots:      make(map[int64][]model.QuestionSlot),
		now:        time.Now,
	}
}

// Candidates returns the candidate view of the store.
func (s *Store) Candidates() *CandidateStore { return &CandidateStore{s} }

// Slots returns the slot view of the store.
func (s *Store) Slots() *SlotStore { return &SlotStore{s} }

// Questions returns the question bank view of the store.
func (s *Store) Questions() *QuestionStore { return &QuestionStore{s} }

// Audit returns a sink that appends proctoring events to the store.
func (s *Store) Audit() *AuditSink { return &AuditSink{s} }

// Notifier returns a sink that records completion notices.
func (s *Store) Notifier() *Notifier { return &Notifier{s} }

// SeedQuestions adds n active questions whose correct option cycles A..D.
func (s *Store) SeedQuestions(n int) []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		s.nextID++
		q := model.Question{
			ID:            s.nextID,
			ContentRef:    fmt.Sprintf("q-%03d", s.nextID),
			CorrectOption: model.CanonicalOptions[i%4],
			Difficulty:    model.DifficultyMedium,
			IsActive:      true,
			CreatedAt:     s.now(),
		}
		s.questions = append(s.questions, q)
		added = append(added, q)
	}
	return added
}

// AddCandidate whitelists email and returns the new candidate.
func (s *Store) AddCandidate(email string) *model.Candidate {
	c, _, _ := s.Candidates().Create(context.Background(), email)
	return c
}

// SetStatus overwrites a candidate's status without any transition check.
func (s *Store) SetStatus(id int64, status model.CandidateStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.candidates[id]; ok {
		c.Status = status
	}
}

// SlotsOf returns a copy of a candidate's slots in ordinal order.
func (s *Store) SlotsOf(id int64) []model.QuestionSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotsLocked(id)
}

// ClearPresented drops presented_at from a slot.
func (s *Store) ClearPresented(id int64, ordinal int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.slots[id] {
		if s.slots[id][i].Ordinal == ordinal {
			s.slots[id][i].PresentedAt = nil
		}
	}
}

// Events returns the proctoring events appended so far.
func (s *Store) Events() []model.ProctorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ProctorEvent(nil), s.events...)
}

// Notices returns the completion notices recorded so far.
func (s *Store) Notices() []model.CompletionNotice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CompletionNotice(nil), s.notices...)
}

// FailCompletion makes the next completing write return err and leave every
// row untouched, like a rolled-back transaction. A nil err clears it.
func (s *Store) FailCompletion(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failComplete = err
}

// FailReads makes candidate and slot lookups by id return err until cleared.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = err
}

func (s *Store) takeFailureLocked() error {
	err := s.failComplete
	s.failComplete = nil
	return err
}

// completeLocked mirrors the completion transaction: it moves the candidate to
// COMPLETED, closes every open slot and returns the committed rows.
func (s *Store) completeLocked(cand *model.Candidate, reason model.CompletionReason, at time.Time) (model.Candidate, []model.QuestionSlot) {
	cand.Status = model.CandidateStatusCompleted
	t, r := at, reason
	cand.CompletedAt = &t
	cand.CompletionReason = &r

	slots := s.slots[cand.ID]
	for i := range slots {
		if slots[i].SubmittedAt != nil {
			continue
		}
		zero := 0
		slots[i].SubmittedAt = &t
		slots[i].AutoSubmitted = true
		slots[i].TimeTakenSeconds = &zero
	}
	return *cand, s.slotsLocked(cand.ID)
}

func (s *Store) questionLocked(id int64) (model.Question, bool) {
	for _, q := range s.questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}

// slotsLocked copies slots and joins the answer key, like the SQL join does.
func (s *Store) slotsLocked(id int64) []model.QuestionSlot {
	src := s.slots[id]
	out := make([]model.QuestionSlot, len(src))
	for i, slot := range src {
		if q, ok := s.questionLocked(slot.QuestionID); ok {
			slot.CorrectOption = q.CorrectOption
			slot.ContentRef = q.ContentRef
		}
		out[i] = slot
	}
	return out
}

// ─── Candidates ─────────────────────────────────────────────────────

// CandidateStore implements the candidate persistence interfaces.
type CandidateStore struct{ s *Store }

func (c *CandidateStore) GetByID(_ context.Context, id int64) (*model.Candidate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.failReads != nil {
		return nil, c.s.failReads
	}
	cand, ok := c.s.candidates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *cand
	return &cp, nil
}

func (c *CandidateStore) GetByEmail(_ context.Context, email string) (*model.Candidate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, cand := range c.s.candidates {
		if cand.Email == email {
			cp := *cand
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c *CandidateStore) Create(_ context.Context, email string) (*model.Candidate, bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, cand := range c.s.candidates {
		if cand.Email == email {
			cp := *cand
			return &cp, false, nil
		}
	}
	c.s.nextID++
	cand := &model.Candidate{
		ID:        c.s.nextID,
		Email:     email,
		Status:    model.CandidateStatusNotStarted,
		CreatedAt: c.s.now(),
	}
	c.s.candidates[cand.ID] = cand
	cp := *cand
	return &cp, true, nil
}

func (c *CandidateStore) List(_ context.Context, status *model.CandidateStatus, limit, offset int) ([]model.Candidate, int, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var all []model.Candidate
	for _, cand := range c.s.candidates {
		if status == nil || cand.Status == *status {
			all = append(all, *cand)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (c *CandidateStore) DeleteByEmail(_ context.Context, email string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for id, cand := range c.s.candidates {
		if cand.Email != email {
			continue
		}
		if cand.Status != model.CandidateStatusNotStarted {
			return repository.ErrStaleState
		}
		delete(c.s.candidates, id)
		return nil
	}
	return repository.ErrNotFound
}

func (c *CandidateStore) IncrementWarnings(_ context.Context, id int64, blur, warnings, limit int, at time.Time) (*model.WarningOutcome, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cand, ok := c.s.candidates[id]
	if !ok || cand.Status != model.CandidateStatusInProgress {
		return nil, repository.ErrStaleState
	}
	if limit <= 0 || cand.WarningCount+warnings < limit {
		cand.BlurCount += blur
		cand.WarningCount += warnings
		return &model.WarningOutcome{Candidate: *cand}, nil
	}

	if err := c.s.takeFailureLocked(); err != nil {
		return nil, err
	}
	cand.BlurCount += blur
	cand.WarningCount += warnings
	done, slots := c.s.completeLocked(cand, model.CompletionReasonWarningThreshold, at)
	return &model.WarningOutcome{Candidate: done, Completed: true, Slots: slots}, nil
}

func (c *CandidateStore) Block(_ context.Context, id int64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cand, ok := c.s.candidates[id]
	if !ok || cand.Status == model.CandidateStatusBlocked {
		return repository.ErrStaleState
	}
	cand.Status = model.CandidateStatusBlocked
	return nil
}

func (c *CandidateStore) Reset(_ context.Context, id int64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cand, ok := c.s.candidates[id]
	if !ok || cand.Status == model.CandidateStatusBlocked {
		return repository.ErrStaleState
	}
	cand.Status = model.CandidateStatusNotStarted
	cand.StartedAt, cand.CompletedAt, cand.CompletionReason = nil, nil, nil
	cand.BlurCount, cand.WarningCount = 0, 0
	delete(c.s.slots, id)
	return nil
}

func (c *CandidateStore) StatusBreakdown(_ context.Context) (model.StatusBreakdown, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var b model.StatusBreakdown
	for _, cand := range c.s.candidates {
		switch cand.Status {
		case model.CandidateStatusNotStarted:
			b.NotStarted++
		case model.CandidateStatusInProgress:
			b.InProgress++
		case model.CandidateStatusCompleted:
			b.Completed++
		case model.CandidateStatusBlocked:
			b.Blocked++
		}
	}
	return b, nil
}

// ─── Slots ──────────────────────────────────────────────────────────

// SlotStore implements the slot persistence interface.
type SlotStore struct{ s *Store }

func (st *SlotStore) BeginTest(_ context.Context, candidateID int64, slots []model.QuestionSlot, startedAt time.Time) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	cand, ok := st.s.candidates[candidateID]
	if !ok || cand.Status != model.CandidateStatusNotStarted {
		return repository.ErrStaleState
	}
	cand.Status = model.CandidateStatusInProgress
	t := startedAt
	cand.StartedAt = &t
	stored := make([]model.QuestionSlot, len(slots))
	for i, slot := range slots {
		slot.CandidateID = candidateID
		slot.CorrectOption, slot.ContentRef = "", ""
		stored[i] = slot
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Ordinal < stored[j].Ordinal })
	st.s.slots[candidateID] = stored
	return nil
}

func (st *SlotStore) Get(_ context.Context, candidateID int64, ordinal int) (*model.QuestionSlot, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, slot := range st.s.slotsLocked(candidateID) {
		if slot.Ordinal == ordinal {
			return &slot, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (st *SlotStore) ListByCandidate(_ context.Context, candidateID int64) ([]model.QuestionSlot, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if st.s.failReads != nil {
		return nil, st.s.failReads
	}
	return st.s.slotsLocked(candidateID), nil
}

func (st *SlotStore) ListByCandidates(_ context.Context, candidateIDs []int64) (map[int64][]model.QuestionSlot, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	out := make(map[int64][]model.QuestionSlot, len(candidateIDs))
	for _, id := range candidateIDs {
		if slots := st.s.slotsLocked(id); len(slots) > 0 {
			out[id] = slots
		}
	}
	return out, nil
}

func (st *SlotStore) MarkPresented(_ context.Context, candidateID int64, ordinal int, at time.Time) (time.Time, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	slots := st.s.slots[candidateID]
	for i := range slots {
		if slots[i].Ordinal != ordinal {
			continue
		}
		if slots[i].PresentedAt == nil {
			t := at
			slots[i].PresentedAt = &t
		}
		return *slots[i].PresentedAt, nil
	}
	return time.Time{}, repository.ErrNotFound
}

func (st *SlotStore) Close(_ context.Context, candidateID int64, ordinal int, out model.SlotOutcome) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	cand, ok := st.s.candidates[candidateID]
	if !ok || cand.Status != model.CandidateStatusInProgress {
		return repository.ErrStaleState
	}
	slots := st.s.slots[candidateID]
	for i := range slots {
		slot := &slots[i]
		if slot.Ordinal != ordinal {
			continue
		}
		if slot.SubmittedAt != nil {
			return repository.ErrStaleState
		}
		taken, at := out.TimeTakenSeconds, out.SubmittedAt
		slot.SelectedOption = out.SelectedOption
		slot.IsCorrect = out.IsCorrect
		slot.TimeTakenSeconds = &taken
		slot.SubmittedAt = &at
		slot.AutoSubmitted = out.AutoSubmitted
		if slot.PresentedAt == nil {
			slot.PresentedAt = &at
		}
		return nil
	}
	return repository.ErrStaleState
}

func (st *SlotStore) CompleteTest(_ context.Context, candidateID int64, reason model.CompletionReason, at time.Time) (*model.Candidate, []model.QuestionSlot, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	cand, ok := st.s.candidates[candidateID]
	if !ok || cand.Status != model.CandidateStatusInProgress {
		return nil, nil, repository.ErrStaleState
	}
	if err := st.s.takeFailureLocked(); err != nil {
		return nil, nil, err
	}
	done, slots := st.s.completeLocked(cand, reason, at)
	return &done, slots, nil
}

func (st *SlotStore) Aggregates(_ context.Context) (model.SlotAggregates, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var a model.SlotAggregates
	var graded, correct, timed, timeSum int
	for _, slots := range st.s.slots {
		for _, slot := range slots {
			a.TotalSlots++
			if slot.SubmittedAt != nil {
				graded++
				if slot.IsCorrect != nil && *slot.IsCorrect {
					correct++
				}
			}
			if slot.TimeTakenSeconds != nil {
				timed++
				timeSum += *slot.TimeTakenSeconds
			}
		}
	}
	if graded > 0 {
		a.AverageCorrect = float64(correct) / float64(graded)
	}
	if timed > 0 {
		a.AverageTimeTaken = float64(timeSum) / float64(timed)
	}
	return a, nil
}

// ─── Questions ──────────────────────────────────────────────────────

// QuestionStore implements the question bank interface.
type QuestionStore struct{ s *Store }

func (qs *QuestionStore) ListActive(_ context.Context) ([]model.Question, error) {
	qs.s.mu.Lock()
	defer qs.s.mu.Unlock()
	var out []model.Question
	for _, q := range qs.s.questions {
		if q.IsActive {
			out = append(out, q)
		}
	}
	return out, nil
}

func (qs *QuestionStore) CountActive(ctx context.Context) (int, error) {
	active, err := qs.ListActive(ctx)
	return len(active), err
}

func (qs *QuestionStore) List(_ context.Context, activeOnly bool, limit int) ([]model.Question, error) {
	qs.s.mu.Lock()
	defer qs.s.mu.Unlock()
	var out []model.Question
	for i := len(qs.s.questions) - 1; i >= 0 && len(out) < limit; i-- {
		if q := qs.s.questions[i]; !activeOnly || q.IsActive {
			out = append(out, q)
		}
	}
	return out, nil
}

func (qs *QuestionStore) Create(_ context.Context, q *model.Question) error {
	qs.s.mu.Lock()
	defer qs.s.mu.Unlock()
	qs.s.nextID++
	q.ID = qs.s.nextID
	q.IsActive = true
	q.CreatedAt = qs.s.now()
	qs.s.questions = append(qs.s.questions, *q)
	return nil
}

func (qs *QuestionStore) Deactivate(_ context.Context, id int64) error {
	qs.s.mu.Lock()
	defer qs.s.mu.Unlock()
	for i := range qs.s.questions {
		if qs.s.questions[i].ID == id {
			qs.s.questions[i].IsActive = false
			return nil
		}
	}
	return repository.ErrNotFound
}

// ─── Sinks ──────────────────────────────────────────────────────────

// AuditSink records proctoring events in the store.
type AuditSink struct{ s *Store }

func (a *AuditSink) Append(_ context.Context, ev model.ProctorEvent) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.events = append(a.s.events, ev)
	return nil
}

// Notifier records completion notices in the store.
type Notifier struct{ s *Store }

func (n *Notifier) Notify(_ context.Context, notice model.CompletionNotice) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	n.s.notices = append(n.s.notices, notice)
	return nil
}
