package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/proctored-mcq/internal/config"
)

// NewRedis starts an in-process Redis server for the duration of the test.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// Clock is a manually advanced time source shared by services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and, when mr is non-nil, expires Redis keys to match.
func (c *Clock) Advance(d time.Duration, mr *miniredis.Miniredis) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	if mr != nil {
		mr.FastForward(d)
	}
}

// ExamConfig returns a small exam configuration for tests.
func ExamConfig(totalQuestions int) config.ExamConfig {
	cfg := config.DefaultExamConfig()
	cfg.TotalQuestions = totalQuestions
	cfg.QuestionTimeLimit = 60 * time.Second
	cfg.TimerGrace = 10 * time.Second
	return cfg
}

// Config returns an application configuration for tests.
func Config(totalQuestions int) *config.Config {
	return &config.Config{
		GinMode:    "test",
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
		AdminEmail: "admin@example.com",
		Exam:       ExamConfig(totalQuestions),
	}
}
