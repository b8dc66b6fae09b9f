package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/config"
	"github.com/stemsi/proctored-mcq/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

var proctorEventColumns = []string{
	"id", "candidate_id", "kind", "details", "client_timestamp", "ip_address", "user_agent", "recorded_at",
}

// ProctorQueue appends proctoring events to the Redis queue drained by ProctorEventWorker.
type ProctorQueue struct {
	rdb *redis.Client
}

// NewProctorQueue creates a ProctorQueue.
func NewProctorQueue(rdb *redis.Client) *ProctorQueue {
	return &ProctorQueue{rdb: rdb}
}

// Append enqueues one audit event.
func (q *ProctorQueue) Append(ctx context.Context, ev model.ProctorEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode proctor event: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistProctorEventsQueue, data).Err()
}

// ProctorEventWorker persists queued proctoring events into proctor_events in batches.
type ProctorEventWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewProctorEventWorker creates a ProctorEventWorker.
func NewProctorEventWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ProctorEventWorker {
	return &ProctorEventWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "proctor_event_worker").Logger(),
	}
}

// Start drains the queue until ctx is cancelled, then flushes what is buffered.
func (w *ProctorEventWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctorEventWorker started")

	buffer := make([]model.ProctorEvent, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flush(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// BLPop blocks for PollTimeout and returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistProctorEventsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var ev model.ProctorEvent
		if err := json.Unmarshal([]byte(result[1]), &ev); err != nil || ev.ID == uuid.Nil {
			// Malformed payloads cannot succeed on retry.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed proctor event")
			continue
		}
		buffer = append(buffer, ev)
	}
}

func eventRow(ev model.ProctorEvent) []any {
	var ip, ua *string
	if ev.IPAddress != "" {
		ip = &ev.IPAddress
	}
	if ev.UserAgent != "" {
		ua = &ev.UserAgent
	}
	return []any{ev.ID, ev.CandidateID, ev.Kind, ev.Details, ev.ClientTimestamp, ip, ua, ev.RecordedAt}
}

// flush tries a bulk copy first and falls back to row-by-row inserts.
func (w *ProctorEventWorker) flush(ctx context.Context, batch []model.ProctorEvent) {
	rows := make([][]any, 0, len(batch))
	for _, ev := range batch {
		rows = append(rows, eventRow(ev))
	}
	_, err := w.pool.CopyFrom(ctx, pgx.Identifier{"proctor_events"}, proctorEventColumns, pgx.CopyFromRows(rows))
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Proctor events persisted")
		return
	}

	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
	var requeue []model.ProctorEvent
	for _, ev := range batch {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO proctor_events (id, candidate_id, kind, details, client_timestamp, ip_address, user_agent, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO NOTHING`,
			eventRow(ev)...)
		if err != nil {
			w.log.Error().Err(err).Int64("candidate_id", ev.CandidateID).Msg("Insert failed, requeueing")
			requeue = append(requeue, ev)
		}
	}
	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *ProctorEventWorker) requeue(ctx context.Context, items []model.ProctorEvent) {
	pipe := w.rdb.Pipeline()
	for _, ev := range items {
		data, _ := json.Marshal(ev)
		pipe.RPush(ctx, config.WorkerKey.PersistProctorEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: failed to requeue proctor events")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed proctor events")
	// Back off so a down database is not hammered.
	time.Sleep(2 * time.Second)
}

func (w *ProctorEventWorker) shutdown(buffer []model.ProctorEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")
	if len(buffer) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.flush(ctx, buffer)
}
