package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/response"
	"github.com/stemsi/proctored-mcq/internal/service"
)

// RateLimit limits requests per client IP to limit per window, counted in
// Redis so every instance shares the budget. Redis errors let the request through.
func RateLimit(limiter *service.RateLimiter, scope string, limit int, window time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP(), limit, window)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("Rate limiter unavailable")
			c.Next()
			return
		}
		if !ok {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
