// Package publish defines the boundary for pushing leaderboard updates to
// the version-controlled remote, with bounded retries around transient
// failures.
package publish

import (
	"context"
	"log"
	"time"

	apperrors "github.com/mkallio/inviteboard/internal/platform/errors"
)

// ErrPublish indicates the update could not be pushed. Saved state is
// unaffected; callers retry or reconcile later.
var ErrPublish = apperrors.New(apperrors.CodePublishFailed, "publish failed")

// Request is one commit-and-push request.
type Request struct {
	// Paths are worktree-relative files to stage.
	Paths []string
	// Message is the commit message when a commit is created.
	Message string
}

// Result reports what one publish did.
type Result struct {
	// Committed is false when staging produced no changes.
	Committed  bool
	CommitHash string
}

// Publisher commits staged files and pushes them to the configured remote.
// Publishing already-pushed content is a no-op, so a retry after a partial
// failure never duplicates commits.
type Publisher interface {
	Publish(ctx context.Context, req Request) (Result, error)
	// Pending reports whether local state is ahead of the remote: a dirty
	// worktree or unpushed commits.
	Pending(ctx context.Context) (bool, error)
}

// RetryPolicy bounds publish retries.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy retries four times, waiting 2s, 4s and 8s in between.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 4, Backoff: 2 * time.Second, MaxDelay: 10 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = 2 * time.Second
	}
	if p.MaxDelay < p.Backoff {
		p.MaxDelay = p.Backoff
	}
	return p
}

// WithRetry runs the publish, retrying failures with doubling delays until
// the policy is exhausted. It returns the number of attempts made.
func WithRetry(ctx context.Context, pub Publisher, req Request, policy RetryPolicy) (Result, int, error) {
	policy = policy.normalized()
	delay := policy.Backoff
	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, attempt - 1, err
		}
		result, err := pub.Publish(ctx, req)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err
		log.Printf("publish attempt %d/%d failed: %v", attempt, policy.Attempts, err)
		if attempt == policy.Attempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return Result{}, attempt, ctx.Err()
		}
		if delay < policy.MaxDelay {
			delay *= 2
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		}
	}
	return Result{}, policy.Attempts, apperrors.Wrap(apperrors.CodePublishFailed, "publish retries exhausted", lastErr)
}
