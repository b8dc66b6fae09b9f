package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctored-mcq/internal/model"
)

const slotColumns = `s.candidate_id, s.ordinal, s.question_id, s.option_order, s.selected_option,
	s.is_correct, s.time_limit_seconds, s.time_taken_seconds, s.presented_at, s.submitted_at,
	s.auto_submitted, q.correct_option, q.content_ref`

// SlotRepository handles question slot data access.
type SlotRepository struct {
	pool *pgxpool.Pool
}

// NewSlotRepository creates a new SlotRepository.
func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

func scanSlot(row pgx.Row) (*model.QuestionSlot, error) {
	s := &model.QuestionSlot{}
	var order, correct string
	var selected *string
	err := row.Scan(&s.CandidateID, &s.Ordinal, &s.QuestionID, &order, &selected,
		&s.IsCorrect, &s.TimeLimitSeconds, &s.TimeTakenSeconds, &s.PresentedAt, &s.SubmittedAt,
		&s.AutoSubmitted, &correct, &s.ContentRef)
	if err != nil {
		return nil, notFound(err)
	}
	if s.OptionPermutation, err = model.DecodePermutation(order); err != nil {
		return nil, err
	}
	if selected != nil {
		l := model.OptionLabel(*selected)
		s.SelectedOption = &l
	}
	s.CorrectOption = model.OptionLabel(correct)
	return s, nil
}

func collectSlots(rows pgx.Rows) ([]model.QuestionSlot, error) {
	defer rows.Close()
	var slots []model.QuestionSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// BeginTest moves a NOT_STARTED candidate to IN_PROGRESS and persists its
// slots in the same transaction. ErrStaleState means the candidate had
// already left NOT_STARTED and nothing was written.
func (r *SlotRepository) BeginTest(ctx context.Context, candidateID int64, slots []model.QuestionSlot, startedAt time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE candidates SET status = $2, started_at = $3
			 WHERE id = $1 AND status = $4`,
			candidateID, model.CandidateStatusInProgress, startedAt, model.CandidateStatusNotStarted)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleState
		}

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"question_slots"},
			[]string{"candidate_id", "ordinal", "question_id", "option_order", "time_limit_seconds"},
			pgx.CopyFromSlice(len(slots), func(i int) ([]any, error) {
				s := slots[i]
				return []any{candidateID, s.Ordinal, s.QuestionID, model.EncodePermutation(s.OptionPermutation), s.TimeLimitSeconds}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy slots: %w", err)
		}
		if int(n) != len(slots) {
			return fmt.Errorf("copy slots: wrote %d of %d", n, len(slots))
		}
		return nil
	})
}

// Get returns one slot joined with its question's answer key and content reference.
func (r *SlotRepository) Get(ctx context.Context, candidateID int64, ordinal int) (*model.QuestionSlot, error) {
	return scanSlot(r.pool.QueryRow(ctx,
		`SELECT `+slotColumns+`
		 FROM question_slots s JOIN questions q ON q.id = s.question_id
		 WHERE s.candidate_id = $1 AND s.ordinal = $2`,
		candidateID, ordinal))
}

// ListByCandidate returns all slots of a candidate in ordinal order.
func (r *SlotRepository) ListByCandidate(ctx context.Context, candidateID int64) ([]model.QuestionSlot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+slotColumns+`
		 FROM question_slots s JOIN questions q ON q.id = s.question_id
		 WHERE s.candidate_id = $1
		 ORDER BY s.ordinal`, candidateID)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

// ListByCandidates returns the slots of several candidates keyed by candidate id.
func (r *SlotRepository) ListByCandidates(ctx context.Context, candidateIDs []int64) (map[int64][]model.QuestionSlot, error) {
	out := make(map[int64][]model.QuestionSlot, len(candidateIDs))
	if len(candidateIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+slotColumns+`
		 FROM question_slots s JOIN questions q ON q.id = s.question_id
		 WHERE s.candidate_id = ANY($1)
		 ORDER BY s.candidate_id, s.ordinal`, candidateIDs)
	if err != nil {
		return nil, err
	}
	slots, err := collectSlots(rows)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		out[s.CandidateID] = append(out[s.CandidateID], s)
	}
	return out, nil
}

// MarkPresented records the first presentation time of an open slot. If the
// slot was already presented the stored time wins and is returned.
func (r *SlotRepository) MarkPresented(ctx context.Context, candidateID int64, ordinal int, at time.Time) (time.Time, error) {
	var effective time.Time
	err := r.pool.QueryRow(ctx,
		`UPDATE question_slots SET presented_at = COALESCE(presented_at, $3)
		 WHERE candidate_id = $1 AND ordinal = $2
		 RETURNING presented_at`,
		candidateID, ordinal, at,
	).Scan(&effective)
	if err != nil {
		return time.Time{}, notFound(err)
	}
	return effective, nil
}

// Close applies the outcome to an open slot of an in-progress candidate.
// ErrStaleState means the slot was already closed or the candidate left IN_PROGRESS.
func (r *SlotRepository) Close(ctx context.Context, candidateID int64, ordinal int, out model.SlotOutcome) error {
	var selected *string
	if out.SelectedOption != nil {
		s := string(*out.SelectedOption)
		selected = &s
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE question_slots s
		 SET selected_option = $3, is_correct = $4, time_taken_seconds = $5,
		     submitted_at = $6, auto_submitted = $7,
		     presented_at = COALESCE(s.presented_at, $6)
		 FROM candidates c
		 WHERE c.id = s.candidate_id AND s.candidate_id = $1 AND s.ordinal = $2
		   AND s.submitted_at IS NULL AND c.status = $8`,
		candidateID, ordinal, selected, out.IsCorrect, out.TimeTakenSeconds,
		out.SubmittedAt, out.AutoSubmitted, model.CandidateStatusInProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

// CompleteTest moves an IN_PROGRESS candidate to COMPLETED and auto-closes
// every slot still open, in one transaction. The rows are returned as committed.
func (r *SlotRepository) CompleteTest(ctx context.Context, candidateID int64, reason model.CompletionReason, at time.Time) (*model.Candidate, []model.QuestionSlot, error) {
	var c *model.Candidate
	var slots []model.QuestionSlot
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		c, slots, err = completeTx(ctx, tx, candidateID, reason, at)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return c, slots, nil
}

// completeTx applies a completion inside tx and reads back the candidate and
// its slots from the same transaction.
func completeTx(ctx context.Context, tx pgx.Tx, candidateID int64, reason model.CompletionReason, at time.Time) (*model.Candidate, []model.QuestionSlot, error) {
	c, err := scanCandidate(tx.QueryRow(ctx,
		`UPDATE candidates SET status = $2, completed_at = $3, completion_reason = $4
		 WHERE id = $1 AND status = $5
		 RETURNING `+candidateColumns,
		candidateID, model.CandidateStatusCompleted, at, reason, model.CandidateStatusInProgress))
	if errors.Is(err, ErrNotFound) {
		return nil, nil, ErrStaleState
	}
	if err != nil {
		return nil, nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE question_slots
		 SET submitted_at = $2, auto_submitted = TRUE, time_taken_seconds = 0
		 WHERE candidate_id = $1 AND submitted_at IS NULL`,
		candidateID, at); err != nil {
		return nil, nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT `+slotColumns+`
		 FROM question_slots s JOIN questions q ON q.id = s.question_id
		 WHERE s.candidate_id = $1
		 ORDER BY s.ordinal`, candidateID)
	if err != nil {
		return nil, nil, err
	}
	slots, err := collectSlots(rows)
	if err != nil {
		return nil, nil, err
	}
	return c, slots, nil
}

// Aggregates computes platform-wide slot totals.
func (r *SlotRepository) Aggregates(ctx context.Context) (model.SlotAggregates, error) {
	var a model.SlotAggregates
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(CASE WHEN is_correct THEN 1.0 ELSE 0.0 END) FILTER (WHERE submitted_at IS NOT NULL), 0),
		        COALESCE(AVG(time_taken_seconds), 0)
		 FROM question_slots`,
	).Scan(&a.TotalSlots, &a.AverageCorrect, &a.AverageTimeTaken)
	return a, err
}
