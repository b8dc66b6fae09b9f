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

const candidateColumns = `id, email, status, started_at, completed_at, completion_reason, blur_count, warning_count, created_at`

// CandidateRepository handles candidate data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

func scanCandidate(row pgx.Row) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := row.Scan(&c.ID, &c.Email, &c.Status, &c.StartedAt, &c.CompletedAt,
		&c.CompletionReason, &c.BlurCount, &c.WarningCount, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// GetByID retrieves a candidate by primary key.
func (r *CandidateRepository) GetByID(ctx context.Context, id int64) (*model.Candidate, error) {
	return scanCandidate(r.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id))
}

// GetByEmail retrieves a candidate by whitelisted email.
func (r *CandidateRepository) GetByEmail(ctx context.Context, email string) (*model.Candidate, error) {
	return scanCandidate(r.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE email = $1`, email))
}

// Create whitelists an email. When the email already exists the stored
// candidate is returned with created=false.
func (r *CandidateRepository) Create(ctx context.Context, email string) (*model.Candidate, bool, error) {
	c, err := scanCandidate(r.pool.QueryRow(ctx,
		`INSERT INTO candidates (email, status)
		 VALUES ($1, $2)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING `+candidateColumns,
		email, model.CandidateStatusNotStarted))
	if errors.Is(err, ErrNotFound) {
		existing, getErr := r.GetByEmail(ctx, email)
		if getErr != nil {
			return nil, false, fmt.Errorf("fetch existing candidate: %w", getErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// List returns candidates ordered by id, optionally filtered by status, plus the total match count.
func (r *CandidateRepository) List(ctx context.Context, status *model.CandidateStatus, limit, offset int) ([]model.Candidate, int, error) {
	where := ""
	args := []any{}
	if status != nil {
		args = append(args, *status)
		where = " WHERE status = $1"
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM candidates"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM candidates%s ORDER BY id LIMIT $%d OFFSET $%d`,
		candidateColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, total, rows.Err()
}

// DeleteByEmail removes a candidate that has never produced session or audit data.
func (r *CandidateRepository) DeleteByEmail(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM candidates WHERE email = $1 AND status = $2`,
		email, model.CandidateStatusNotStarted)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrStaleState
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByEmail(ctx, email); err != nil {
			return err
		}
		return ErrStaleState
	}
	return nil
}

// IncrementWarnings adds to the proctoring counters of an in-progress candidate.
// When the new warning count reaches limit the test is completed in the same
// transaction, so a committed crossing never leaves the candidate IN_PROGRESS.
// The row lock taken by UPDATE serializes concurrent events, so each caller
// observes a distinct warning count. A limit of zero disables completion.
func (r *CandidateRepository) IncrementWarnings(ctx context.Context, id int64, blur, warnings, limit int, at time.Time) (*model.WarningOutcome, error) {
	var out model.WarningOutcome
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := scanCandidate(tx.QueryRow(ctx,
			`UPDATE candidates
			 SET blur_count = blur_count + $2, warning_count = warning_count + $3
			 WHERE id = $1 AND status = $4
			 RETURNING `+candidateColumns,
			id, blur, warnings, model.CandidateStatusInProgress))
		if errors.Is(err, ErrNotFound) {
			return ErrStaleState
		}
		if err != nil {
			return err
		}
		out.Candidate = *c
		if limit <= 0 || c.WarningCount < limit {
			return nil
		}

		done, slots, err := completeTx(ctx, tx, id, model.CompletionReasonWarningThreshold, at)
		if err != nil {
			return err
		}
		out.Candidate, out.Slots, out.Completed = *done, slots, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Block moves any non-blocked candidate to BLOCKED.
func (r *CandidateRepository) Block(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE candidates SET status = $2 WHERE id = $1 AND status <> $2`,
		id, model.CandidateStatusBlocked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

// Reset deletes every slot of the candidate and returns it to NOT_STARTED with
// cleared timestamps and counters. Blocked candidates are left untouched.
func (r *CandidateRepository) Reset(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE candidates
			 SET status = $2, started_at = NULL, completed_at = NULL, completion_reason = NULL,
			     blur_count = 0, warning_count = 0
			 WHERE id = $1 AND status <> $3`,
			id, model.CandidateStatusNotStarted, model.CandidateStatusBlocked)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleState
		}
		_, err = tx.Exec(ctx, `DELETE FROM question_slots WHERE candidate_id = $1`, id)
		return err
	})
}

// StatusBreakdown counts candidates per status.
func (r *CandidateRepository) StatusBreakdown(ctx context.Context) (model.StatusBreakdown, error) {
	var b model.StatusBreakdown
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return b, err
	}
	defer rows.Close()

	for rows.Next() {
		var status model.CandidateStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return b, err
		}
		switch status {
		case model.CandidateStatusNotStarted:
			b.NotStarted = n
		case model.CandidateStatusInProgress:
			b.InProgress = n
		case model.CandidateStatusCompleted:
			b.Completed = n
		case model.CandidateStatusBlocked:
			b.Blocked = n
		}
	}
	return b, rows.Err()
}
