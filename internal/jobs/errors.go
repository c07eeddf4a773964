package jobs

import "errors"

var (
	// ErrNotFound covers both absent jobs and jobs owned by someone else,
	// so callers cannot probe for other users' job ids.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidState is returned when retry is requested on a job that is
	// not in the failed state.
	ErrInvalidState = errors.New("job is not in a retryable state")

	// ErrNoPending signals an empty queue to claim callers.
	ErrNoPending = errors.New("no pending jobs")
)
