package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/config"
	"github.com/stemsi/proctored-mcq/internal/handler"
	"github.com/stemsi/proctored-mcq/internal/middleware"
	"github.com/stemsi/proctored-mcq/internal/response"
	"github.com/stemsi/proctored-mcq/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth  *handler.AuthHandler
	Test  *handler.TestHandler
	Admin *handler.AdminHandler
	WS    *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	limiter *service.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecureHeaders(cfg.GinMode != gin.ReleaseMode))
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.RateLimit(limiter, "auth", 30, time.Minute, log))
	{
		auth.POST("/otp/request", handlers.Auth.RequestOTP)
		auth.POST("/otp/verify", handlers.Auth.VerifyOTP)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		candidateAuth := auth.Group("")
		candidateAuth.Use(
			middleware.RequireCandidateJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
		)
		candidateAuth.POST("/logout", handlers.Auth.Logout)
		candidateAuth.GET("/me", handlers.Auth.GetProfile)
	}

	// ─── 2. Test Group (Candidate JWT + Single Device) ────────────────
	test := router.Group("/api/v1/test")
	test.Use(
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
	)
	{
		test.POST("/start", handlers.Test.StartTest)
		test.GET("/questions/:ordinal", handlers.Test.GetQuestion)
		test.POST("/answers", handlers.Test.SubmitAnswer)
		test.POST("/complete", handlers.Test.CompleteTest)
		test.GET("/status", handlers.Test.GetStatus)
		test.POST("/proctor-events", handlers.Test.RecordProctorEvent)
		test.GET("/result", handlers.Test.GetResult)
	}

	// ─── 3. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/test/proctor", handlers.WS.ProctorStream)
	}

	// ─── 4. Admin Group (Admin JWT) ────────────────────────────────────
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.RequireAdminJWT(authService))
	{
		admin.POST("/whitelist", handlers.Admin.AddToWhitelist)
		admin.GET("/whitelist", handlers.Admin.ListWhitelist)
		admin.DELETE("/whitelist/:email", handlers.Admin.RemoveFromWhitelist)

		admin.POST("/candidates/:id/block", handlers.Admin.BlockCandidate)
		admin.POST("/candidates/:id/reset", handlers.Admin.ResetCandidate)

		admin.GET("/results", handlers.Admin.ListResults)
		admin.GET("/results/:email", handlers.Admin.GetResult)
		admin.GET("/statistics", handlers.Admin.GetStatistics)

		admin.POST("/questions", handlers.Admin.AddQuestion)
		admin.GET("/questions", handlers.Admin.ListQuestions)
		admin.DELETE("/questions/:id", handlers.Admin.DeactivateQuestion)
	}

	return router
}
