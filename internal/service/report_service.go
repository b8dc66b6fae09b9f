package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// ReportService derives result summaries and platform statistics. It never mutates state.
type ReportService struct {
	candidates CandidateAdminStore
	slots      SlotStore
	questions  QuestionStore
}

// NewReportService creates a new ReportService.
func NewReportService(candidates CandidateAdminStore, slots SlotStore, questions QuestionStore) *ReportService {
	return &ReportService{candidates: candidates, slots: slots, questions: questions}
}

// percentage returns part/total*100 rounded to two places, or 0 for an empty total.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).DivRound(decimal.NewFromInt(int64(total)), 2).InexactFloat64()
}

// BuildSummary aggregates a candidate's slots. It fails with ErrNoData when there are none.
func BuildSummary(c *model.Candidate, slots []model.QuestionSlot) (*model.ResultSummary, error) {
	if len(slots) == 0 {
		return nil, ErrNoData
	}

	sum := &model.ResultSummary{
		CandidateID:    c.ID,
		Email:          c.Email,
		TotalQuestions: len(slots),
		BlurCount:      c.BlurCount,
		WarningCount:   c.WarningCount,
	}
	for _, s := range slots {
		switch {
		case s.IsCorrect != nil && *s.IsCorrect:
			sum.CorrectAnswers++
		case s.SelectedOption != nil:
			sum.IncorrectAnswers++
		default:
			sum.Unanswered++
		}
		if s.TimeTakenSeconds != nil {
			sum.TotalTimeSeconds += *s.TimeTakenSeconds
		}
	}
	sum.AccuracyPercentage = percentage(sum.CorrectAnswers, sum.TotalQuestions)

	if c.CompletedAt != nil {
		sum.CompletedAt = *c.CompletedAt
	} else {
		sum.CompletedAt = c.CreatedAt
		sum.CompletedAtFallback = true
	}
	return sum, nil
}

// Summarize returns one candidate's result summary.
func (s *ReportService) Summarize(ctx context.Context, candidateID int64) (*model.ResultSummary, error) {
	c, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	slots, err := s.slots.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return BuildSummary(c, slots)
}

// SummarizeByEmail returns the result summary of the candidate with the given email.
func (s *ReportService) SummarizeByEmail(ctx context.Context, email string) (*model.ResultSummary, error) {
	c, err := s.candidates.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return s.Summarize(ctx, c.ID)
}

// SummarizeAll returns summaries for every candidate in status (all statuses
// when nil) that has test data. Candidates without slots are skipped.
func (s *ReportService) SummarizeAll(ctx context.Context, status *model.CandidateStatus, limit, offset int) (*model.BulkResults, error) {
	candidates, total, err := s.candidates.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	breakdown, err := s.candidates.StatusBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	byCandidate, err := s.slots.ListByCandidates(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	out := &model.BulkResults{
		TotalCandidates: total,
		Breakdown:       breakdown,
		Results:         make([]model.ResultSummary, 0, len(candidates)),
	}
	for i := range candidates {
		sum, err := BuildSummary(&candidates[i], byCandidate[candidates[i].ID])
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Results = append(out.Results, *sum)
	}
	return out, nil
}

// Statistics returns platform-wide aggregates.
func (s *ReportService) Statistics(ctx context.Context) (*model.Statistics, error) {
	breakdown, err := s.candidates.StatusBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	active, err := s.questions.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	agg, err := s.slots.Aggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("slot aggregates: %w", err)
	}

	return &model.Statistics{
		TotalCandidates:        breakdown.Total(),
		TotalActiveQuestions:   active,
		TotalSlots:             agg.TotalSlots,
		AverageAccuracy:        decimal.NewFromFloat(agg.AverageCorrect).Mul(hundred).Round(2).InexactFloat64(),
		AverageTimePerQuestion: decimal.NewFromFloat(agg.AverageTimeTaken).Round(2).InexactFloat64(),
		Breakdown:              breakdown,
	}, nil
}
