package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/response"
	"github.com/stemsi/proctored-mcq/internal/service"
	"github.com/stemsi/proctored-mcq/internal/validator"
)

// AdminHandler handles the administrator endpoints.
type AdminHandler struct {
	adminService    *service.AdminService
	reportService   *service.ReportService
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	adminService *service.AdminService,
	reportService *service.ReportService,
	questionService *service.QuestionService,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		reportService:   reportService,
		questionService: questionService,
		log:             log.With().Str("component", "admin_handler").Logger(),
	}
}

// statusFilter parses the optional ?status= query.
func statusFilter(c *gin.Context) (*model.CandidateStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	st := model.CandidateStatus(raw)
	if !st.Valid() {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"status": "status must be one of NOT_STARTED, IN_PROGRESS, COMPLETED, BLOCKED"})
		return nil, false
	}
	return &st, true
}

// AddToWhitelist godoc
// POST /api/v1/admin/whitelist
// Whitelists a candidate email. Re-adding an existing email is not an error.
func (h *AdminHandler) AddToWhitelist(c *gin.Context) {
	var req model.WhitelistRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, created, err := h.adminService.Whitelist(c.Request.Context(), req.Email)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"candidate": candidate, "created": created})
}

// ListWhitelist godoc
// GET /api/v1/admin/whitelist
// Lists candidates with pagination, optionally filtered by status.
func (h *AdminHandler) ListWhitelist(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	status, ok := statusFilter(c)
	if !ok {
		return
	}

	candidates, pagination, err := h.adminService.ListCandidates(c.Request.Context(), status, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"candidates": candidates}, pagination)
}

// RemoveFromWhitelist godoc
// DELETE /api/v1/admin/whitelist/:email
// Removes a candidate that has not started a test.
func (h *AdminHandler) RemoveFromWhitelist(c *gin.Context) {
	if err := h.adminService.RemoveFromWhitelist(c.Request.Context(), c.Param("email")); err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "candidate removed"})
}

// BlockCandidate godoc
// POST /api/v1/admin/candidates/:id/block
// Moves a candidate to BLOCKED and ends their session.
func (h *AdminHandler) BlockCandidate(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.adminService.Block(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "candidate blocked"})
}

// ResetCandidate godoc
// POST /api/v1/admin/candidates/:id/reset
// Discards the candidate's test so they can start again.
func (h *AdminHandler) ResetCandidate(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.adminService.Reset(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "candidate reset"})
}

// ListResults godoc
// GET /api/v1/admin/results
// Returns result summaries for candidates that have test data.
func (h *AdminHandler) ListResults(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	status, ok := statusFilter(c)
	if !ok {
		return
	}

	results, err := h.reportService.SummarizeAll(c.Request.Context(), status, limit, offset)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, results)
}

// GetResult godoc
// GET /api/v1/admin/results/:email
// Returns one candidate's result summary.
func (h *AdminHandler) GetResult(c *gin.Context) {
	summary, err := h.reportService.SummarizeByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// GetStatistics godoc
// GET /api/v1/admin/statistics
// Returns platform-wide aggregates.
func (h *AdminHandler) GetStatistics(c *gin.Context) {
	stats, err := h.reportService.Statistics(c.Request.Context())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// AddQuestion godoc
// POST /api/v1/admin/questions
// Adds an active question to the bank.
func (h *AdminHandler) AddQuestion(c *gin.Context) {
	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Add(c.Request.Context(), req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// ListQuestions godoc
// GET /api/v1/admin/questions
// Lists questions newest first; ?active_only=false includes deactivated ones.
func (h *AdminHandler) ListQuestions(c *gin.Context) {
	activeOnly := c.DefaultQuery("active_only", "true") != "false"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	questions, err := h.questionService.List(c.Request.Context(), activeOnly, limit)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// DeactivateQuestion godoc
// DELETE /api/v1/admin/questions/:id
// Excludes a question from future tests.
func (h *AdminHandler) DeactivateQuestion(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.questionService.Deactivate(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "question deactivated"})
}
