package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/config"
	"github.com/stemsi/proctored-mcq/internal/database"
	"github.com/stemsi/proctored-mcq/internal/handler"
	"github.com/stemsi/proctored-mcq/internal/logger"
	"github.com/stemsi/proctored-mcq/internal/mailer"
	"github.com/stemsi/proctored-mcq/internal/repository"
	"github.com/stemsi/proctored-mcq/internal/router"
	"github.com/stemsi/proctored-mcq/internal/service"
	"github.com/stemsi/proctored-mcq/internal/validator"
	"github.com/stemsi/proctored-mcq/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Int("questions_per_test", cfg.Exam.TotalQuestions).
		Dur("question_time_limit", cfg.Exam.QuestionTimeLimit).
		Int("max_warnings", cfg.Exam.MaxWarnings).
		Str("timing_source", string(cfg.Exam.TimingSource)).
		Msg("Starting proctored MCQ backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Mailer ────────────────────────────────────────────────────────
	mail, err := mailer.New(cfg.SMTP, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure mailer")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	candidateRepo := repository.NewCandidateRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	// ─── Queues ────────────────────────────────────────────────────────
	proctorQueue := worker.NewProctorQueue(rdb)
	noticeQueue := worker.NewNotificationQueue(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	limiter := service.NewRateLimiter(rdb)
	timerService := service.NewTimerService(rdb, cfg.Exam.TimerGrace)
	sessionService := service.NewSessionService(
		cfg.Exam, candidateRepo, slotRepo, questionRepo,
		timerService, service.NewRandomizer(nil), noticeQueue, log,
	)
	proctorService := service.NewProctorService(cfg.Exam.MaxWarnings, candidateRepo, proctorQueue, sessionService, log)
	reportService := service.NewReportService(candidateRepo, slotRepo, questionRepo)
	otpService := service.NewOTPService(cfg.Exam, candidateRepo, authService, limiter, mail, rdb, log)
	adminService := service.NewAdminService(cfg.Exam, candidateRepo, timerService, authService, log)
	questionService := service.NewQuestionService(questionRepo)

	if n, err := questionRepo.CountActive(ctx); err != nil {
		log.Warn().Err(err).Msg("Could not count active questions")
	} else if n < cfg.Exam.TotalQuestions {
		log.Warn().Int("active", n).Int("required", cfg.Exam.TotalQuestions).
			Msg("Question bank is smaller than the per-test question count; starts will fail")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:  handler.NewAuthHandler(authService, otpService, candidateRepo, int(cfg.Exam.OTPExpiry/time.Minute), log),
		Test:  handler.NewTestHandler(sessionService, proctorService, reportService, log),
		Admin: handler.NewAdminHandler(adminService, reportService, questionService, log),
		WS:    handler.NewWSHandler(authService, proctorService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	proctorWorker := worker.NewProctorEventWorker(pool, rdb, log)
	notificationWorker := worker.NewNotificationWorker(rdb, mail, log)

	workers.Add(2)
	go func() {
		defer workers.Done()
		proctorWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		notificationWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, limiter, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for their final flush.
	workerCancel()
	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Workers did not drain before timeout")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
