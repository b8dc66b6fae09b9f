package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestBuildSummary(t *testing.T) {
	completed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	c := &model.Candidate{ID: 4, Email: "a@example.com", BlurCount: 1, WarningCount: 2, CompletedAt: &completed}
	slots := []model.QuestionSlot{
		{Ordinal: 1, SelectedOption: ptr(model.OptionB), IsCorrect: ptr(true), TimeTakenSeconds: ptr(12)},
		{Ordinal: 2, SelectedOption: ptr(model.OptionA), IsCorrect: ptr(false), TimeTakenSeconds: ptr(30)},
		{Ordinal: 3, IsCorrect: ptr(false), TimeTakenSeconds: ptr(0), AutoSubmitted: true},
	}

	sum, err := BuildSummary(c, slots)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	want := model.ResultSummary{
		CandidateID:        4,
		Email:              "a@example.com",
		TotalQuestions:     3,
		CorrectAnswers:     1,
		IncorrectAnswers:   1,
		Unanswered:         1,
		AccuracyPercentage: 33.33,
		TotalTimeSeconds:   42,
		BlurCount:          1,
		WarningCount:       2,
		CompletedAt:        completed,
	}
	if *sum != want {
		t.Fatalf("summary = %+v\nwant      %+v", *sum, want)
	}
}

func TestBuildSummaryFallbackAndEmpty(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	c := &model.Candidate{ID: 1, CreatedAt: created}

	if _, err := BuildSummary(c, nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}

	sum, err := BuildSummary(c, []model.QuestionSlot{{Ordinal: 1}})
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if !sum.CompletedAtFallback || !sum.CompletedAt.Equal(created) || sum.Unanswered != 1 || sum.AccuracyPercentage != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
		{7, 20, 35},
	}
	for _, tt := range tests {
		if got := percentage(tt.part, tt.total); got != tt.want {
			t.Errorf("percentage(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestReportService(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, 2, 6)
	report := NewReportService(f.store.Candidates(), f.store.Slots(), f.store.Questions())

	done := f.started(t, "done@example.com")
	if _, err := f.session.GetQuestion(ctx, done, 1); err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	f.advance(10 * time.Second)
	if _, err := f.answer(t, done, 1, true, 10); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if _, err := f.session.CompleteTest(ctx, done, model.CompletionReasonCandidate); err != nil {
		t.Fatalf("CompleteTest: %v", err)
	}
	f.started(t, "busy@example.com")
	idle := f.store.AddCandidate("idle@example.com")

	sum, err := report.SummarizeByEmail(ctx, "done@example.com")
	if err != nil {
		t.Fatalf("SummarizeByEmail: %v", err)
	}
	if sum.CorrectAnswers != 1 || sum.Unanswered != 1 || sum.AccuracyPercentage != 50 || sum.TotalTimeSeconds != 10 {
		t.Fatalf("summary = %+v", sum)
	}

	if _, err := report.Summarize(ctx, idle.ID); !errors.Is(err, ErrNoData) {
		t.Fatalf("idle summary err = %v, want ErrNoData", err)
	}
	if _, err := report.SummarizeByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("unknown email err = %v, want ErrCandidateNotFound", err)
	}

	all, err := report.SummarizeAll(ctx, nil, 100, 0)
	if err != nil {
		t.Fatalf("SummarizeAll: %v", err)
	}
	if all.TotalCandidates != 3 || len(all.Results) != 2 {
		t.Fatalf("bulk = %+v", all)
	}
	want := model.StatusBreakdown{NotStarted: 1, InProgress: 1, Completed: 1}
	if all.Breakdown != want {
		t.Fatalf("breakdown = %+v, want %+v", all.Breakdown, want)
	}

	completed := model.CandidateStatusCompleted
	onlyDone, err := report.SummarizeAll(ctx, &completed, 100, 0)
	if err != nil {
		t.Fatalf("SummarizeAll(completed): %v", err)
	}
	if onlyDone.TotalCandidates != 1 || len(onlyDone.Results) != 1 || onlyDone.Results[0].Email != "done@example.com" {
		t.Fatalf("filtered bulk = %+v", onlyDone)
	}

	stats, err := report.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	// done: two slots graded (one correct); busy: two open slots.
	if stats.TotalCandidates != 3 || stats.TotalActiveQuestions != 6 || stats.TotalSlots != 4 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.AverageAccuracy != 50 || stats.AverageTimePerQuestion != 5 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestReportServiceEmpty(t *testing.T) {
	store := testutil.NewStore()
	report := NewReportService(store.Candidates(), store.Slots(), store.Questions())
	stats, err := report.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalCandidates != 0 || stats.AverageAccuracy != 0 || stats.TotalSlots != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
