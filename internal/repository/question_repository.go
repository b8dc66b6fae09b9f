package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctored-mcq/internal/model"
)

const questionColumns = `id, content_ref, correct_option, difficulty, topic, explanation, is_active, created_at, updated_at`

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	var correct, difficulty string
	err := row.Scan(&q.ID, &q.ContentRef, &correct, &difficulty, &q.Topic, &q.Explanation,
		&q.IsActive, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	q.CorrectOption = model.OptionLabel(correct)
	q.Difficulty = model.QuestionDifficulty(difficulty)
	return q, nil
}

func (r *QuestionRepository) query(ctx context.Context, sql string, args ...any) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// ListActive returns every active question; the pool that test subsets are drawn from.
func (r *QuestionRepository) ListActive(ctx context.Context) ([]model.Question, error) {
	return r.query(ctx, `SELECT `+questionColumns+` FROM questions WHERE is_active ORDER BY id`)
}

// CountActive returns the number of active questions.
func (r *QuestionRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE is_active`).Scan(&n)
	return n, err
}

// List returns questions newest first.
func (r *QuestionRepository) List(ctx context.Context, activeOnly bool, limit int) ([]model.Question, error) {
	return r.query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE is_active OR NOT $1
		 ORDER BY id DESC LIMIT $2`, activeOnly, limit)
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (content_ref, correct_option, difficulty, topic, explanation, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING id, is_active, created_at`,
		q.ContentRef, string(q.CorrectOption), string(q.Difficulty), q.Topic, q.Explanation,
	).Scan(&q.ID, &q.IsActive, &q.CreatedAt)
}

// Deactivate removes a question from future subsets. Existing slots keep referencing it.
func (r *QuestionRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
