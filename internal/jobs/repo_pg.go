package jobs

import (
	"context"
	"database/sql"
	"errors"
)

const jobColumns = `id, user_id, original_text, humanized_text, status, attempts, error_message, word_count, created_at, updated_at, completed_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new pending job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO humanization_jobs (id, user_id, original_text, status, attempts, word_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())`
	_, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		job.OriginalText,
		job.Status,
		job.Attempts,
		job.WordCount,
	)
	return err
}

// GetByID returns a job by id, restricted to the owning user.
func (r *PGRepo) GetByID(ctx context.Context, userID, jobID string) (Job, error) {
	const query = `
SELECT ` + jobColumns + `
FROM humanization_jobs
WHERE id = $1 AND user_id = $2
LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, jobID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// ListByUser returns a page of the user's jobs, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	const query = `
SELECT ` + jobColumns + `
FROM humanization_jobs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// ClaimNext atomically claims the oldest pending job, marking it processing
// and incrementing its attempt counter. FOR UPDATE SKIP LOCKED keeps
// concurrent workers from blocking on or double-claiming the same row; the
// row lock is released when the statement commits, before the slow external
// call happens.
func (r *PGRepo) ClaimNext(ctx context.Context) (Job, error) {
	const query = `
UPDATE humanization_jobs
SET status = 'processing', attempts = attempts + 1, updated_at = now()
WHERE id = (
    SELECT id
    FROM humanization_jobs
    WHERE status = 'pending'
    ORDER BY created_at, id
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + jobColumns
	job, err := scanJob(r.DB.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNoPending
		}
		return Job{}, err
	}
	return job, nil
}

// MarkCompleted records a successful result.
func (r *PGRepo) MarkCompleted(ctx context.Context, jobID, humanizedText string) error {
	const query = `
UPDATE humanization_jobs
SET status = 'completed', humanized_text = $2, error_message = NULL, updated_at = now(), completed_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, jobID, humanizedText)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkFailed records a failed attempt, returning the job to pending or
// parking it as failed once the attempt budget is spent.
func (r *PGRepo) MarkFailed(ctx context.Context, jobID, status, errorMessage string) error {
	const query = `
UPDATE humanization_jobs
SET status = $2, error_message = $3, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, jobID, status, errorMessage)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Retry moves a failed job back to pending, clearing its error message.
// The status guard runs under a row lock so a concurrent claim cannot
// interleave with the transition check.
func (r *PGRepo) Retry(ctx context.Context, userID, jobID string) (Job, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Job{}, err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM humanization_jobs WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		jobID, userID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	if status != StatusFailed {
		return Job{}, ErrInvalidState
	}

	job, err := scanJob(tx.QueryRowContext(ctx, `
UPDATE humanization_jobs
SET status = 'pending', error_message = NULL, updated_at = now()
WHERE id = $1
RETURNING `+jobColumns, jobID))
	if err != nil {
		return Job{}, err
	}
	if err := tx.Commit(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Stats aggregates counts and average turnaround per status.
func (r *PGRepo) Stats(ctx context.Context) (Stats, error) {
	const query = `
SELECT status, COUNT(*), COALESCE(AVG(EXTRACT(EPOCH FROM (updated_at - created_at))), 0)
FROM humanization_jobs
GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	stats := Stats{ByStatus: make(map[string]StatusStats)}
	for rows.Next() {
		var status string
		var count int
		var avgSeconds float64
		if err := rows.Scan(&status, &count, &avgSeconds); err != nil {
			return Stats{}, err
		}
		stats.ByStatus[status] = StatusStats{Count: count, AvgSeconds: avgSeconds}
		stats.Total += count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var humanizedText sql.NullString
	var errorMessage sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.OriginalText,
		&humanizedText,
		&job.Status,
		&job.Attempts,
		&errorMessage,
		&job.WordCount,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return Job{}, err
	}
	if humanizedText.Valid {
		job.HumanizedText = &humanizedText.String
	}
	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
