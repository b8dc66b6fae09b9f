package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/proctored-mcq/internal/config"
)

// TimerRecord is the authoritative start instant of one question slot.
type TimerRecord struct {
	StartedAt time.Time
	Duration  time.Duration
}

type timerPayload struct {
	StartedAtMs     int64 `json:"started_at_ms"`
	DurationSeconds int   `json:"duration_seconds"`
}

// TimerStatus is the result of checking a slot's timer.
type TimerStatus struct {
	// Found is false when no record exists; Expired is then reported as true
	// and the caller decides whether that means "not started" or "past deadline".
	Found            bool
	Valid            bool
	Expired          bool
	RemainingSeconds int
	StartedAt        time.Time
}

// TimerService keeps per-slot deadlines in Redis.
type TimerService struct {
	rdb   *redis.Client
	grace time.Duration
	now   func() time.Time
}

// NewTimerService creates a TimerService. grace is added to every record's TTL
// so an expired timer is still observable for a short while.
func NewTimerService(rdb *redis.Client, grace time.Duration) *TimerService {
	return &TimerService{rdb: rdb, grace: grace, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *TimerService) WithClock(now func() time.Time) *TimerService {
	s.now = now
	return s
}

// Start arms the timer for a slot. A record that already exists is returned
// unchanged; a running timer is never re-armed.
func (s *TimerService) Start(ctx context.Context, candidateID int64, ordinal int, duration time.Duration) (TimerRecord, error) {
	rec := TimerRecord{StartedAt: s.now().Truncate(time.Millisecond), Duration: duration}
	return s.store(ctx, candidateID, ordinal, rec, duration+s.grace)
}

// Restore rebuilds a record that vanished from Redis using the durable start
// time. Nothing is stored once the deadline plus grace has passed.
func (s *TimerService) Restore(ctx context.Context, candidateID int64, ordinal int, startedAt time.Time, duration time.Duration) (TimerRecord, error) {
	rec := TimerRecord{StartedAt: startedAt, Duration: duration}
	ttl := duration - s.now().Sub(startedAt) + s.grace
	if ttl <= 0 {
		return rec, nil
	}
	return s.store(ctx, candidateID, ordinal, rec, ttl)
}

func (s *TimerService) store(ctx context.Context, candidateID int64, ordinal int, rec TimerRecord, ttl time.Duration) (TimerRecord, error) {
	key := config.CacheKey.QuestionTimerKey(candidateID, ordinal)
	data, err := json.Marshal(timerPayload{
		StartedAtMs:     rec.StartedAt.UnixMilli(),
		DurationSeconds: int(rec.Duration / time.Second),
	})
	if err != nil {
		return TimerRecord{}, fmt.Errorf("encode timer: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return TimerRecord{}, fmt.Errorf("arm timer: %w", err)
	}
	if ok {
		return rec, nil
	}

	existing, found, err := s.load(ctx, key)
	if err != nil {
		return TimerRecord{}, err
	}
	if !found {
		// Expired between SETNX and GET; the caller's record is as good as any.
		if err := s.rdb.SetNX(ctx, key, data, ttl).Err(); err != nil {
			return TimerRecord{}, fmt.Errorf("arm timer: %w", err)
		}
		return rec, nil
	}
	return existing, nil
}

func (s *TimerService) load(ctx context.Context, key string) (TimerRecord, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return TimerRecord{}, false, nil
		}
		return TimerRecord{}, false, fmt.Errorf("read timer: %w", err)
	}
	var p timerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return TimerRecord{}, false, fmt.Errorf("decode timer: %w", err)
	}
	return TimerRecord{
		StartedAt: time.UnixMilli(p.StartedAtMs),
		Duration:  time.Duration(p.DurationSeconds) * time.Second,
	}, true, nil
}

// Check reports the remaining time of a slot's timer.
func (s *TimerService) Check(ctx context.Context, candidateID int64, ordinal int) (TimerStatus, error) {
	rec, found, err := s.load(ctx, config.CacheKey.QuestionTimerKey(candidateID, ordinal))
	if err != nil {
		return TimerStatus{}, err
	}
	if !found {
		return TimerStatus{Expired: true}, nil
	}
	remaining := s.Remaining(rec)
	return TimerStatus{
		Found:            true,
		Valid:            remaining > 0,
		Expired:          remaining == 0,
		RemainingSeconds: remaining,
		StartedAt:        rec.StartedAt,
	}, nil
}

// Remaining returns whole seconds left on rec, rounded up and never negative.
func (s *TimerService) Remaining(rec TimerRecord) int {
	left := rec.Duration - s.now().Sub(rec.StartedAt)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Elapsed returns whole seconds since rec started, clamped to [0, duration].
func (s *TimerService) Elapsed(rec TimerRecord) int {
	limit := int(rec.Duration / time.Second)
	elapsed := int(s.now().Sub(rec.StartedAt) / time.Second)
	return max(0, min(elapsed, limit))
}

// Clear removes a slot's timer. A missing record is not an error.
func (s *TimerService) Clear(ctx context.Context, candidateID int64, ordinal int) error {
	return s.rdb.Del(ctx, config.CacheKey.QuestionTimerKey(candidateID, ordinal)).Err()
}

// ClearAll removes the timers of ordinals 1..n.
func (s *TimerService) ClearAll(ctx context.Context, candidateID int64, n int) error {
	if n <= 0 {
		return nil
	}
	keys := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		keys = append(keys, config.CacheKey.QuestionTimerKey(candidateID, i))
	}
	return s.rdb.Del(ctx, keys...).Err()
}
