package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use. It is
// the dev fallback when no DATABASE_URL is configured; claims are
// serialized by the mutex the same way the Postgres repo serializes them
// with row locks.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]*Job
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]*Job)}
}

func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := job
	r.byID[job.ID] = &stored
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok || job.UserID != userID {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var owned []Job
	for _, job := range r.byID {
		if job.UserID == userID {
			owned = append(owned, *job)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if offset >= len(owned) {
		return []Job{}, nil
	}
	owned = owned[offset:]
	if limit < len(owned) {
		owned = owned[:limit]
	}
	return owned, nil
}

func (r *MemoryRepo) ClaimNext(ctx context.Context) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldest *Job
	for _, job := range r.byID {
		if job.Status != StatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) ||
			(job.CreatedAt.Equal(oldest.CreatedAt) && job.ID < oldest.ID) {
			oldest = job
		}
	}
	if oldest == nil {
		return Job{}, ErrNoPending
	}

	oldest.Status = StatusProcessing
	oldest.Attempts++
	oldest.UpdatedAt = time.Now().UTC()
	return *oldest, nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, jobID, humanizedText string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	text := humanizedText
	job.Status = StatusCompleted
	job.HumanizedText = &text
	job.ErrorMessage = nil
	job.UpdatedAt = now
	job.CompletedAt = &now
	return nil
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, jobID, status, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	msg := errorMessage
	job.Status = status
	job.ErrorMessage = &msg
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepo) Retry(ctx context.Context, userID, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok || job.UserID != userID {
		return Job{}, ErrNotFound
	}
	if job.Status != StatusFailed {
		return Job{}, ErrInvalidState
	}
	job.Status = StatusPending
	job.ErrorMessage = nil
	job.UpdatedAt = time.Now().UTC()
	return *job, nil
}

func (r *MemoryRepo) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	sums := make(map[string]float64)
	for _, job := range r.byID {
		counts[job.Status]++
		sums[job.Status] += job.UpdatedAt.Sub(job.CreatedAt).Seconds()
	}

	stats := Stats{ByStatus: make(map[string]StatusStats, len(counts))}
	for status, count := range counts {
		stats.ByStatus[status] = StatusStats{
			Count:      count,
			AvgSeconds: sums[status] / float64(count),
		}
		stats.Total += count
	}
	return stats, nil
}
