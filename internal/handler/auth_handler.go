package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/middleware"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/repository"
	"github.com/stemsi/proctored-mcq/internal/response"
	"github.com/stemsi/proctored-mcq/internal/service"
	"github.com/stemsi/proctored-mcq/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	otpService  *service.OTPService
	candidates  service.CandidateStore
	otpMinutes  int
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	otpService *service.OTPService,
	candidates service.CandidateStore,
	otpMinutes int,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		otpService:  otpService,
		candidates:  candidates,
		otpMinutes:  otpMinutes,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// RequestOTP godoc
// POST /api/v1/auth/otp/request
// Emails a one-time login code to a whitelisted candidate.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req model.OTPRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.otpService.RequestOTP(c.Request.Context(), req.Email); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":            "OTP sent",
		"expires_in_minutes": h.otpMinutes,
	})
}

// VerifyOTP godoc
// POST /api/v1/auth/otp/verify
// Exchanges a valid code for a candidate JWT. Earlier logins are invalidated.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req model.OTPVerifyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.otpService.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Logout godoc
// POST /api/v1/auth/logout
// Ends the current candidate session.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetCandidateSession(c.Request.Context(), claims.CandidateID); err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// GetProfile godoc
// GET /api/v1/auth/me
// Returns the currently authenticated candidate.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	candidate, err := h.candidates.GetByID(c.Request.Context(), claims.CandidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"candidate": candidate})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Validates the administrator credentials and returns an admin JWT.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.authService.CheckAdminLogin(req.Email, req.Password); err != nil {
		h.log.Warn().Str("email", req.Email).Str("ip", c.ClientIP()).Msg("Admin login rejected")
		failWithError(c, h.log, err)
		return
	}

	token, err := h.authService.GenerateAdminToken(req.Email)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"token": token, "token_type": "bearer"})
}
