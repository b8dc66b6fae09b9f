package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/config"
	"github.com/stemsi/proctored-mcq/internal/model"
)

// MaxNotificationAttempts bounds delivery retries of one completion notice.
const MaxNotificationAttempts = 3

// CompletionMailer delivers a completion notice.
type CompletionMailer interface {
	SendCompletion(ctx context.Context, n model.CompletionNotice) error
}

// NotificationQueue hands completion notices to NotificationWorker.
type NotificationQueue struct {
	rdb *redis.Client
}

// NewNotificationQueue creates a NotificationQueue.
func NewNotificationQueue(rdb *redis.Client) *NotificationQueue {
	return &NotificationQueue{rdb: rdb}
}

// Notify enqueues a notice. It does not wait for delivery.
func (q *NotificationQueue) Notify(ctx context.Context, n model.CompletionNotice) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.CompletionNoticeQueue, data).Err()
}

// NotificationWorker sends queued completion notices by email.
type NotificationWorker struct {
	rdb    *redis.Client
	mailer CompletionMailer
	log    zerolog.Logger
}

// NewNotificationWorker creates a NotificationWorker.
func NewNotificationWorker(rdb *redis.Client, mailer CompletionMailer, log zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		rdb:    rdb,
		mailer: mailer,
		log:    log.With().Str("component", "notification_worker").Logger(),
	}
}

// Start processes notices until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("NotificationWorker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("NotificationWorker stopped")
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.CompletionNoticeQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}
		w.process(ctx, result[1])
	}
}

// process delivers one raw notice, requeueing it while attempts remain.
func (w *NotificationWorker) process(ctx context.Context, raw string) {
	var n model.CompletionNotice
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed notice")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := w.mailer.SendCompletion(sendCtx, n)
	cancel()
	if err == nil {
		w.log.Info().Int64("candidate_id", n.CandidateID).Msg("Completion notice sent")
		return
	}

	n.Attempts++
	if n.Attempts >= MaxNotificationAttempts {
		w.log.Error().Err(err).Int64("candidate_id", n.CandidateID).Int("attempts", n.Attempts).Msg("Giving up on completion notice")
		return
	}
	w.log.Warn().Err(err).Int64("candidate_id", n.CandidateID).Int("attempts", n.Attempts).Msg("Completion notice failed, requeueing")
	data, _ := json.Marshal(n)
	if err := w.rdb.RPush(ctx, config.WorkerKey.CompletionNoticeQueue, data).Err(); err != nil {
		w.log.Error().Err(err).Int64("candidate_id", n.CandidateID).Msg("CRITICAL: failed to requeue notice")
	}
}
