package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/proctored-mcq/internal/response"
	"github.com/stemsi/proctored-mcq/internal/service"
)

// CheckSingleDeviceSession rejects candidate tokens whose JTI is no longer the
// active login, either because the candidate logged in elsewhere or an
// administrator blocked or reset them.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		// Only enforce for candidate tokens.
		if claims.TokenType != service.TokenTypeCandidate {
			c.Next()
			return
		}

		err := authService.ValidateCandidateSession(c.Request.Context(), claims.CandidateID, claims.ID)
		switch {
		case errors.Is(err, service.ErrSessionInvalid):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		case err != nil:
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		c.Next()
	}
}
