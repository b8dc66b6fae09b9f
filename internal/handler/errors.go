package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/response"
	"github.com/stemsi/proctored-mcq/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

var errorMappings = []errorMapping{
	{service.ErrInvalidState, http.StatusConflict, response.ErrInvalidState},
	{service.ErrOutOfRange, http.StatusBadRequest, response.ErrOutOfRange},
	{service.ErrAlreadyAnswered, http.StatusConflict, response.ErrAlreadyAnswered},
	{service.ErrTimeExpired, http.StatusRequestTimeout, response.ErrTimeExpired},
	{service.ErrInvalidSubmission, http.StatusUnprocessableEntity, response.ErrInvalidSubmission},
	{service.ErrNoData, http.StatusNotFound, response.ErrNoData},
	{service.ErrCandidateNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrQuestionNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrNotWhitelisted, http.StatusForbidden, response.ErrNotWhitelisted},
	{service.ErrOTPInvalid, http.StatusUnauthorized, response.ErrOTPInvalid},
	{service.ErrOTPDelivery, http.StatusServiceUnavailable, response.ErrOTPDelivery},
	{service.ErrRateLimited, http.StatusTooManyRequests, response.ErrRateLimitExceeded},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrSessionInvalid, http.StatusUnauthorized, response.ErrSessionInvalidated},
}

// failWithError maps a service error onto the response envelope. Unknown
// errors and an insufficient question pool are server faults and get logged.
func failWithError(c *gin.Context, log zerolog.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			response.Fail(c, m.status, m.code)
			return
		}
	}
	code := response.ErrInternal
	if errors.Is(err, service.ErrInsufficientPool) {
		code = response.ErrInsufficientPool
	}
	log.Error().Err(err).
		Str("path", c.FullPath()).
		Str("request_id", response.RequestID(c)).
		Msg("Request failed")
	response.Fail(c, http.StatusInternalServerError, code)
}

// paramInt64 parses a positive integer path parameter.
func paramInt64(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
