// Package storage defines the persistence boundary for leaderboard state.
package storage

import (
	"context"
	"time"

	"github.com/mkallio/inviteboard/internal/leaderboard/domain"
	apperrors "github.com/mkallio/inviteboard/internal/platform/errors"
)

var (
	// ErrCorrupt indicates the persisted state cannot be trusted. Startup
	// must fail rather than continue from an empty board.
	ErrCorrupt = apperrors.New(apperrors.CodeStorageCorrupt, "leaderboard state is corrupt")
	// ErrWriteFailed indicates the state file could not be replaced. The
	// previously persisted bytes remain intact.
	ErrWriteFailed = apperrors.New(apperrors.CodeStorageWrite, "leaderboard state write failed")
)

// Store loads and saves the full leaderboard snapshot.
type Store interface {
	Load(ctx context.Context) (domain.State, error)
	Save(ctx context.Context, state domain.State) error
}

// Publish reasons recorded in the journal.
const (
	PublishReasonSubmission = "submission"
	PublishReasonRepublish  = "republish"
	PublishReasonReconcile  = "reconcile"
)

// PublishAttempt is one durable record of a publish outcome.
type PublishAttempt struct {
	ID            string
	Reason        string
	Outcome       string
	AttemptCount  int32
	LastError     string
	CommitMessage string
	CreatedAt     time.Time
}

// PublishJournal persists publish attempt outcomes for operator diagnostics.
type PublishJournal interface {
	RecordPublish(ctx context.Context, attempt PublishAttempt) error
	ListPublishes(ctx context.Context, limit int) ([]PublishAttempt, error)
}
