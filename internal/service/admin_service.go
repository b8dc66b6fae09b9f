package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/config"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/repository"
	"github.com/stemsi/proctored-mcq/internal/response"
)

// AdminService handles the candidate whitelist and administrative status changes.
type AdminService struct {
	cfg        config.ExamConfig
	candidates CandidateAdminStore
	timer      *TimerService
	auth       *AuthService
	log        zerolog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(cfg config.ExamConfig, candidates CandidateAdminStore, timer *TimerService, auth *AuthService, log zerolog.Logger) *AdminService {
	return &AdminService{
		cfg:        cfg,
		candidates: candidates,
		timer:      timer,
		auth:       auth,
		log:        log.With().Str("component", "admin_service").Logger(),
	}
}

// Whitelist adds an email. It reports false when the email was already listed.
func (s *AdminService) Whitelist(ctx context.Context, email string) (*model.Candidate, bool, error) {
	return s.candidates.Create(ctx, normalizeEmail(email))
}

// ListCandidates returns candidates with pagination, optionally filtered by status.
func (s *AdminService) ListCandidates(ctx context.Context, status *model.CandidateStatus, page, perPage int) ([]model.Candidate, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	candidates, total, err := s.candidates.List(ctx, status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if candidates == nil {
		candidates = []model.Candidate{}
	}
	return candidates, response.NewPagination(page, perPage, total), nil
}

// RemoveFromWhitelist deletes a candidate that has not started a test.
func (s *AdminService) RemoveFromWhitelist(ctx context.Context, email string) error {
	err := s.candidates.DeleteByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrCandidateNotFound
	case errors.Is(err, repository.ErrStaleState):
		return ErrInvalidState
	}
	return err
}

func (s *AdminService) get(ctx context.Context, id int64, op model.Operation) (*model.Candidate, error) {
	c, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if !c.Status.Allows(op) {
		return nil, ErrInvalidState
	}
	return c, nil
}

// Block moves a candidate to the terminal BLOCKED status and ends their login.
func (s *AdminService) Block(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id, model.OpBlock); err != nil {
		return err
	}
	if err := s.candidates.Block(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return ErrInvalidState
		}
		return err
	}
	s.cleanup(ctx, id)
	s.log.Warn().Int64("candidate_id", id).Msg("Candidate blocked")
	return nil
}

// Reset discards a candidate's test data so they can start over.
func (s *AdminService) Reset(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id, model.OpReset); err != nil {
		return err
	}
	if err := s.candidates.Reset(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return ErrInvalidState
		}
		return err
	}
	s.cleanup(ctx, id)
	s.log.Info().Int64("candidate_id", id).Msg("Candidate reset")
	return nil
}

func (s *AdminService) cleanup(ctx context.Context, id int64) {
	if err := s.timer.ClearAll(ctx, id, s.cfg.TotalQuestions); err != nil {
		s.log.Warn().Err(err).Int64("candidate_id", id).Msg("Failed to clear timers")
	}
	if err := s.auth.ResetCandidateSession(ctx, id); err != nil {
		s.log.Warn().Err(err).Int64("candidate_id", id).Msg("Failed to reset session")
	}
}
