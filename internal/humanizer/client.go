// Package humanizer wraps the third-party text-rewriting service behind a
// single fallible call. The upstream is unreliable: it may time out, return
// non-JSON bodies, or reply with an HTML login page instead of a result.
// Callers treat every failure mode uniformly as a failed attempt.
package humanizer

import (
	"context"
	"errors"
)

var (
	ErrEmptyResult   = errors.New("humanizer returned an empty result")
	ErrNotConfigured = errors.New("humanizer not configured")
)

// Client transforms text via the external humanizer service.
type Client interface {
	Humanize(ctx context.Context, text string) (string, error)
}
