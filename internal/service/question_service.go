package service

import (
	"context"
	"errors"

	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/repository"
)

// QuestionService manages the question bank.
type QuestionService struct {
	questions QuestionStore
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore) *QuestionService {
	return &QuestionService{questions: questions}
}

// Add inserts an active question.
func (s *QuestionService) Add(ctx context.Context, req model.AddQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		ContentRef:    req.ContentRef,
		CorrectOption: model.OptionLabel(req.CorrectOption),
		Difficulty:    model.QuestionDifficulty(req.Difficulty),
		Topic:         req.Topic,
		Explanation:   req.Explanation,
	}
	if !q.CorrectOption.Valid() {
		return nil, ErrInvalidSubmission
	}
	if q.Difficulty == "" {
		q.Difficulty = model.DifficultyMedium
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// List returns up to limit questions, newest first.
func (s *QuestionService) List(ctx context.Context, activeOnly bool, limit int) ([]model.Question, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	questions, err := s.questions.List(ctx, activeOnly, limit)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// Deactivate excludes a question from tests started from now on.
func (s *QuestionService) Deactivate(ctx context.Context, id int64) error {
	if err := s.questions.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}
	return nil
}
