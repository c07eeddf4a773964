package jobs

import "context"

// Repo defines persistence operations for humanization jobs.
//
// ClaimNext must be safe under concurrent callers from multiple worker
// processes: each pending job is handed to at most one caller, and callers
// that would contend skip instead of blocking.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, userID, jobID string) (Job, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Job, error)
	ClaimNext(ctx context.Context) (Job, error)
	MarkCompleted(ctx context.Context, jobID, humanizedText string) error
	MarkFailed(ctx context.Context, jobID, status, errorMessage string) error
	Retry(ctx context.Context, userID, jobID string) (Job, error)
	Stats(ctx context.Context) (Stats, error)
}
