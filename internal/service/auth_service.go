package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/proctored-mcq/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// TokenType distinguishes candidate vs admin tokens.
type TokenType string

const (
	TokenTypeCandidate TokenType = "candidate"
	TokenTypeAdmin     TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType `json:"token_type"`
	CandidateID int64     `json:"candidate_id,omitempty"` // Candidate only
	Email       string    `json:"email"`
}

// AuthService handles JWT issuance and single-session enforcement.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb}
}

// HashSecret hashes a password or passcode with the configured bcrypt cost.
func (s *AuthService) HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckAdminLogin verifies the configured administrator credentials.
func (s *AuthService) CheckAdminLogin(email, password string) error {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPasswordHash == "" {
		return ErrInvalidCredentials
	}
	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(email)), []byte(strings.ToLower(s.cfg.AdminEmail))) == 1
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password)); err != nil || !emailOK {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *AuthService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GenerateCandidateToken creates a JWT for a candidate and makes it the only
// valid session. Tokens from earlier logins stop working.
func (s *AuthService) GenerateCandidateToken(ctx context.Context, candidateID int64, email string) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	signed, err := s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(candidateID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:   TokenTypeCandidate,
		CandidateID: candidateID,
		Email:       email,
	})
	if err != nil {
		return "", err
	}

	// Store session in Redis with same expiry as JWT.
	if err := s.rdb.Set(ctx, config.CacheKey.CandidateSessionKey(candidateID), jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

// GenerateAdminToken creates a JWT for the administrator.
func (s *AuthService) GenerateAdminToken(email string) (string, error) {
	now := time.Now()
	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeAdmin,
		Email:     email,
	})
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateCandidateSession checks that the token's JTI matches the active session in Redis.
func (s *AuthService) ValidateCandidateSession(ctx context.Context, candidateID int64, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.CandidateSessionKey(candidateID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionInvalid
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalid
	}
	return nil
}

// ResetCandidateSession removes a candidate's session from Redis, logging them out.
func (s *AuthService) ResetCandidateSession(ctx context.Context, candidateID int64) error {
	return s.rdb.Del(ctx, config.CacheKey.CandidateSessionKey(candidateID)).Err()
}
