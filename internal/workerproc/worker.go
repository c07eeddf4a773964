// Package workerproc drives the queue drain loop. It owns the loop
// lifecycle and backoff counters that would otherwise live in process
// globals; construct one Worker per process and run it until the context
// is cancelled.
package workerproc

import (
	"context"
	"errors"
	"time"

	"humanizer-backend/internal/shared/telemetry"
)

const (
	defaultPollInterval   = 5 * time.Second
	defaultErrorThreshold = 10
	backoffMultiplier     = 5
)

// Processor claims and processes at most one job per call. It reports
// whether work was done; errors mean the processing machinery itself
// failed (e.g. the database is down), not that a job's attempt failed.
type Processor interface {
	ProcessNext(ctx context.Context) (bool, error)
}

// Worker polls the Processor, draining the backlog as fast as it can and
// sleeping between empty polls.
type Worker struct {
	Proc           Processor
	PollInterval   time.Duration
	ErrorThreshold int

	consecutiveErrors int
}

// Run loops until ctx is cancelled. The in-flight ProcessNext call always
// finishes; cancellation is only observed between iterations.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.Proc == nil {
		return errors.New("worker not configured")
	}

	interval := w.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	threshold := w.ErrorThreshold
	if threshold <= 0 {
		threshold = defaultErrorThreshold
	}

	telemetry.Info("worker.started", map[string]any{
		"poll_interval_ms": interval.Milliseconds(),
		"error_threshold":  threshold,
	})

	for {
		if err := ctx.Err(); err != nil {
			telemetry.Info("worker.stopped", map[string]any{"reason": err.Error()})
			return nil
		}

		processed, err := w.Proc.ProcessNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.consecutiveErrors++
			telemetry.Error("worker.process_error", map[string]any{
				"error":              err.Error(),
				"consecutive_errors": w.consecutiveErrors,
			})
			if w.consecutiveErrors >= threshold {
				// Extended backoff, then resume at half the threshold so a
				// still-broken dependency re-enters backoff quickly instead
				// of hammering at full speed.
				telemetry.Warn("worker.backoff", map[string]any{
					"sleep_ms": (backoffMultiplier * interval).Milliseconds(),
				})
				if !sleep(ctx, backoffMultiplier*interval) {
					continue
				}
				w.consecutiveErrors = threshold / 2
				continue
			}
			sleep(ctx, interval)
			continue
		}

		w.consecutiveErrors = 0
		if processed {
			// Drain the backlog without delay.
			continue
		}
		sleep(ctx, interval)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
