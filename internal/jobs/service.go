package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"humanizer-backend/internal/humanizer"
	"humanizer-backend/internal/shared/metrics"
	"humanizer-backend/internal/shared/telemetry"
)

const defaultMaxAttempts = 3

// Service contains the queue scheduling logic.
type Service struct {
	Repo        Repo
	Humanizer   humanizer.Client
	MaxAttempts int
	CallTimeout time.Duration
}

// Enqueue inserts a new pending job for the given owner.
func (s *Service) Enqueue(ctx context.Context, userID, content string) (Job, error) {
	if s == nil || s.Repo == nil {
		return Job{}, errors.New("jobs service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Job{}, errors.New("user id is required")
	}
	if strings.TrimSpace(content) == "" {
		return Job{}, errors.New("content is required")
	}

	now := time.Now().UTC()
	job := Job{
		ID:           uuid.NewString(),
		UserID:       userID,
		OriginalText: content,
		Status:       StatusPending,
		Attempts:     0,
		WordCount:    len(strings.Fields(content)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}

	metrics.IncJobsEnqueued()
	telemetry.Info("queue.enqueued", map[string]any{
		"job_id":     job.ID,
		"user_id":    job.UserID,
		"word_count": job.WordCount,
	})
	return job, nil
}

// Get returns a job visible to the given owner.
func (s *Service) Get(ctx context.Context, userID, jobID string) (Job, error) {
	if s == nil || s.Repo == nil {
		return Job{}, errors.New("jobs service not configured")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(jobID) == "" {
		return Job{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID, jobID)
}

// List returns a newest-first page of the owner's jobs.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("jobs service not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Retry resurrects a failed job. Only failed jobs are eligible; the
// attempt counter is deliberately not reset, only the status and error.
func (s *Service) Retry(ctx context.Context, userID, jobID string) (Job, error) {
	if s == nil || s.Repo == nil {
		return Job{}, errors.New("jobs service not configured")
	}
	job, err := s.Repo.Retry(ctx, userID, jobID)
	if err != nil {
		return Job{}, err
	}
	metrics.IncJobsRetried()
	telemetry.Info("queue.retried", map[string]any{
		"job_id":   job.ID,
		"user_id":  job.UserID,
		"attempts": job.Attempts,
	})
	return job, nil
}

// Stats returns queue-wide counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s == nil || s.Repo == nil {
		return Stats{}, errors.New("jobs service not configured")
	}
	return s.Repo.Stats(ctx)
}

// ProcessNext claims and processes at most one pending job. It reports
// whether any work was done; a failed humanization attempt still counts as
// work for the caller's loop control. Storage errors propagate so the
// worker loop can back off.
func (s *Service) ProcessNext(ctx context.Context) (bool, error) {
	if s == nil || s.Repo == nil {
		return false, errors.New("jobs service not configured")
	}
	if s.Humanizer == nil {
		return false, humanizer.ErrNotConfigured
	}

	job, err := s.Repo.ClaimNext(ctx)
	if err != nil {
		if errors.Is(err, ErrNoPending) {
			return false, nil
		}
		return false, err
	}
	metrics.IncJobsClaimed()

	// The claim transaction has committed; the external call runs without
	// holding any row lock.
	callCtx := ctx
	if s.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	result, humanizeErr := s.Humanizer.Humanize(callCtx, job.OriginalText)
	metrics.ObserveProcessingDurationMs(float64(time.Since(start).Milliseconds()))

	if humanizeErr == nil && strings.TrimSpace(result) == "" {
		humanizeErr = humanizer.ErrEmptyResult
	}

	if humanizeErr != nil {
		metrics.IncJobsFailed()
		status := StatusPending
		if job.Attempts >= s.maxAttempts() {
			status = StatusFailed
		}
		telemetry.Warn("queue.attempt_failed", map[string]any{
			"job_id":   job.ID,
			"attempts": job.Attempts,
			"status":   status,
			"error":    humanizeErr.Error(),
		})
		if err := s.Repo.MarkFailed(ctx, job.ID, status, humanizeErr.Error()); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := s.Repo.MarkCompleted(ctx, job.ID, result); err != nil {
		return false, err
	}
	metrics.IncJobsCompleted()
	telemetry.Info("queue.completed", map[string]any{
		"job_id":      job.ID,
		"attempts":    job.Attempts,
		"duration_ms": float64(time.Since(start).Milliseconds()),
	})
	return true, nil
}

func (s *Service) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return defaultMaxAttempts
}
