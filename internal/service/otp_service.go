package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/config"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// OTPService runs the passwordless login of whitelisted candidates.
type OTPService struct {
	cfg        config.ExamConfig
	candidates CandidateStore
	auth       *AuthService
	limiter    *RateLimiter
	sender     OTPSender
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewOTPService creates a new OTPService.
func NewOTPService(
	cfg config.ExamConfig,
	candidates CandidateStore,
	auth *AuthService,
	limiter *RateLimiter,
	sender OTPSender,
	rdb *redis.Client,
	log zerolog.Logger,
) *OTPService {
	return &OTPService{
		cfg:        cfg,
		candidates: candidates,
		auth:       auth,
		limiter:    limiter,
		sender:     sender,
		rdb:        rdb,
		log:        log.With().Str("component", "otp_service").Logger(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateCode returns n uniformly random decimal digits.
func generateCode(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for range n {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// RequestOTP issues a passcode to a whitelisted candidate that may still log in.
func (s *OTPService) RequestOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	ok, err := s.limiter.Allow(ctx, "otp:"+email, s.cfg.OTPRateLimit, s.cfg.OTPRateWindow)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateLimited
	}

	c, err := s.candidates.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotWhitelisted
		}
		return fmt.Errorf("get candidate: %w", err)
	}
	if !c.Status.Allows(model.OpRequestLogin) {
		return ErrInvalidState
	}

	code, err := generateCode(s.cfg.OTPLength)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hash, err := s.auth.HashSecret(code)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.OTPKey(email), hash, s.cfg.OTPExpiry).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := s.sender.SendOTP(ctx, email, code, s.cfg.OTPExpiry); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("OTP delivery failed")
		s.rdb.Del(ctx, config.CacheKey.OTPKey(email))
		return ErrOTPDelivery
	}
	s.log.Info().Str("email", email).Msg("OTP issued")
	return nil
}

// VerifyOTP exchanges a passcode for a candidate token. A passcode works once.
func (s *OTPService) VerifyOTP(ctx context.Context, email, code string) (*model.OTPVerifyResponse, error) {
	email = normalizeEmail(email)
	key := config.CacheKey.OTPKey(email)

	hash, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrOTPInvalid
		}
		return nil, fmt.Errorf("read otp: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return nil, ErrOTPInvalid
	}
	deleted, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	if deleted == 0 {
		return nil, ErrOTPInvalid
	}

	c, err := s.candidates.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotWhitelisted
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if !c.Status.Allows(model.OpRequestLogin) {
		return nil, ErrInvalidState
	}

	token, err := s.auth.GenerateCandidateToken(ctx, c.ID, c.Email)
	if err != nil {
		return nil, err
	}
	return &model.OTPVerifyResponse{Token: token, TokenType: "bearer", Candidate: *c}, nil
}
