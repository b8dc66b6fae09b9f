package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/middleware"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/response"
	"github.com/stemsi/proctored-mcq/internal/service"
	"github.com/stemsi/proctored-mcq/internal/validator"
)

// TestHandler handles the candidate-facing test endpoints.
type TestHandler struct {
	sessionService *service.SessionService
	proctorService *service.ProctorService
	reportService  *service.ReportService
	log            zerolog.Logger
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(
	sessionService *service.SessionService,
	proctorService *service.ProctorService,
	reportService *service.ReportService,
	log zerolog.Logger,
) *TestHandler {
	return &TestHandler{
		sessionService: sessionService,
		proctorService: proctorService,
		reportService:  reportService,
		log:            log.With().Str("component", "test_handler").Logger(),
	}
}

func candidateID(c *gin.Context) (int64, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.CandidateID == 0 {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, false
	}
	return claims.CandidateID, true
}

// StartTest godoc
// POST /api/v1/test/start
// Draws the candidate's questions and starts the test.
func (h *TestHandler) StartTest(c *gin.Context) {
	id, ok := candidateID(c)
	if !ok {
		return
	}

	started, err := h.sessionService.StartTest(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, started)
}

// GetQuestion godoc
// GET /api/v1/test/questions/:ordinal
// Returns one question and arms its timer on first view.
func (h *TestHandler) GetQuestion(c *gin.Context) {
	id, ok := candidateID(c)
	if !ok {
		return
	}
	ordinal, err := strconv.Atoi(c.Param("ordinal"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrOutOfRange)
		return
	}

	view, err := h.sessionService.GetQuestion(c.Request.Context(), id, ordinal)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// SubmitAnswer godoc
// POST /api/v1/test/answers
// Records the candidate's answer for one question.
func (h *TestHandler) SubmitAnswer(c *gin.Context) {
	id, ok := candidateID(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrInvalidSubmission, fields)
		return
	}

	res, err := h.sessionService.SubmitAnswer(c.Request.Context(), id, req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// CompleteTest godoc
// POST /api/v1/test/complete
// Ends the test and returns the result summary.
func (h *TestHandler) CompleteTest(c *gin.Context) {
	id, ok := candidateID(c)
	if !ok {
		return
	}

	var req model.CompleteTestRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}
	reason := model.CompletionReasonCandidate
	if model.CompletionReason(req.Reason) == model.CompletionReasonTimeout {
		reason = model.CompletionReasonTimeout
	}

	summary, err := h.sessionService.CompleteTest(c.Request.Context(), id, reason)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// GetStatus godoc
// GET /api/v1/test/status
// Returns the candidate's progress. Valid in every state.
func (h *TestHandler) GetStatus(c *gin.Context) {
	id, ok := candidateID(c)
	if !ok {
		return
	}

	status, err := h.sessionService.GetStatus(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// RecordProctorEvent godoc
// POST /api/v1/test/proctor-events
// Logs an anti-cheat signal and reports the warning count.
func (h *TestHandler) RecordProctorEvent(c *gin.Context) {
	id, ok := candidateID(c)
	if !ok {
		return
	}

	var req model.ProctorEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.proctorService.RecordEvent(c.Request.Context(), id, req.EventType, req.Details, model.ProctorEventMeta{
		ClientTimestamp: req.Timestamp,
		IPAddress:       c.ClientIP(),
		UserAgent:       c.Request.UserAgent(),
	})
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetResult godoc
// GET /api/v1/test/result
// Returns the candidate's own result summary.
func (h *TestHandler) GetResult(c *gin.Context) {
	id, ok := candidateID(c)
	if !ok {
		return
	}

	summary, err := h.reportService.Summarize(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}
