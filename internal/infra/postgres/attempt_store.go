package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizhub-attempt-service/internal/domain"
)

const attemptColumns = `id, quiz_id, user_id, status, answers, score, percentage, is_passed, xp_earned, started_at, completed_at`

// AttemptStore persists attempts in the attempts table. Completion is a
// single conditional UPDATE guarded by the expected status.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		attempt.ID, attempt.QuizID, attempt.UserID, string(attempt.Status), answers,
		attempt.Score, attempt.Percentage, attempt.IsPassed, attempt.XPEarned,
		attempt.StartedAt, attempt.CompletedAt)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id=$1`, attemptID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) ConditionalUpdate(ctx context.Context, attemptID string, expected domain.AttemptStatus, c domain.Completion) (domain.Attempt, error) {
	answers := c.Answers
	if answers == nil {
		answers = []domain.GradedAnswer{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal answers: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE attempts
		SET status=$3, answers=$4, score=$5, percentage=$6, is_passed=$7, xp_earned=$8, completed_at=$9
		WHERE id=$1 AND status=$2
		RETURNING `+attemptColumns,
		attemptID, string(expected), string(domain.StatusCompleted), raw,
		c.Score, c.Percentage, c.IsPassed, c.XPEarned, c.CompletedAt)
	updated, err := scanAttempt(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, fmt.Errorf("complete attempt: %w", err)
	}

	// No row matched: either the attempt is gone or its status moved on.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM attempts WHERE id=$1)`, attemptID).Scan(&exists); err != nil {
		return domain.Attempt{}, fmt.Errorf("check attempt: %w", err)
	}
	if !exists {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return domain.Attempt{}, domain.ErrPreconditionFailed
}

func (s *AttemptStore) ListByUser(ctx context.Context, userID string, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE user_id=$1`
	args := []interface{}{userID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	query += ` ORDER BY started_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := []domain.Attempt{}
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return out, nil
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		a           domain.Attempt
		status      string
		answers     []byte
		completedAt *time.Time
	)
	err := row.Scan(&a.ID, &a.QuizID, &a.UserID, &status, &answers,
		&a.Score, &a.Percentage, &a.IsPassed, &a.XPEarned, &a.StartedAt, &completedAt)
	if err != nil {
		return domain.Attempt{}, err
	}
	a.Status = domain.AttemptStatus(status)
	a.Answers = []domain.GradedAnswer{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return domain.Attempt{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	if completedAt != nil {
		t := completedAt.UTC()
		a.CompletedAt = &t
	}
	a.StartedAt = a.StartedAt.UTC()
	return a, nil
}
