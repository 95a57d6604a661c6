// Package app runs the submission pipeline: merge a submission into the
// leaderboard state, persist it, render the page and publish both files.
// All mutations are serialized so concurrent submissions cannot interleave
// between persistence and publication.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mkallio/inviteboard/internal/leaderboard/domain"
	"github.com/mkallio/inviteboard/internal/leaderboard/publish"
	"github.com/mkallio/inviteboard/internal/leaderboard/render"
	"github.com/mkallio/inviteboard/internal/leaderboard/storage"
	"github.com/mkallio/inviteboard/internal/platform/metrics"
	"github.com/mkallio/inviteboard/internal/platform/storage/atomicfile"
)

// Config wires the pipeline dependencies.
type Config struct {
	Store     storage.Store
	Journal   storage.PublishJournal
	Publisher publish.Publisher
	// RetryPolicy bounds publish retries; the zero value uses the default.
	RetryPolicy publish.RetryPolicy
	PageTitle   string
	// PagePath is where the rendered HTML page is written.
	PagePath string
	// PublishPaths are the worktree-relative files staged on publish.
	PublishPaths []string
	Clock        func() time.Time
}

// Service owns the in-memory leaderboard state and the pipeline around it.
type Service struct {
	store        storage.Store
	journal      storage.PublishJournal
	publisher    publish.Publisher
	policy       publish.RetryPolicy
	pageTitle    string
	pagePath     string
	publishPaths []string
	clock        func() time.Time

	mu    sync.Mutex
	state domain.State
	dirty bool
}

// New validates the configuration and returns an unloaded service. Call
// Load before accepting submissions.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("app: store is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("app: publisher is required")
	}
	if cfg.PagePath == "" {
		return nil, fmt.Errorf("app: page path is required")
	}
	if len(cfg.PublishPaths) == 0 {
		return nil, fmt.Errorf("app: publish paths are required")
	}
	policy := cfg.RetryPolicy
	if policy.Attempts == 0 && policy.Backoff == 0 {
		policy = publish.DefaultRetryPolicy()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:        cfg.Store,
		journal:      cfg.Journal,
		publisher:    cfg.Publisher,
		policy:       policy,
		pageTitle:    cfg.PageTitle,
		pagePath:     cfg.PagePath,
		publishPaths: cfg.PublishPaths,
		clock:        clock,
		state:        domain.NewState(),
	}, nil
}

// Load reads the persisted state into memory. A corrupt state file fails
// startup instead of continuing from an empty board.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load leaderboard state: %w", err)
	}
	s.state = state
	users, invites := state.Totals()
	metrics.SetBoardStats(users, invites)
	log.Printf("loaded leaderboard state: %d entries", state.Len())
	return nil
}

// SubmitResult reports what one submission changed.
type SubmitResult struct {
	Record   domain.InviteRecord
	Previous domain.InviteRecord
	Existed  bool
	Rank     int
	// Published is false when the page could not be pushed. The submission
	// is saved regardless and republished later.
	Published bool
}

// Submit runs one submission through the pipeline. Validation and save
// failures return an error and leave the state untouched; a publish failure
// does not, because the accepted submission is durable and the push is
// retried in the background.
func (s *Service) Submit(ctx context.Context, sub domain.Submission) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	upsert, err := s.state.Upsert(sub, s.clock())
	if err != nil {
		metrics.ObserveSubmission(metrics.SubmissionRejected)
		return SubmitResult{}, err
	}
	if err := s.store.Save(ctx, s.state); err != nil {
		if upsert.Existed {
			s.state.Records[upsert.Record.UserID] = upsert.Previous
		} else {
			delete(s.state.Records, upsert.Record.UserID)
		}
		metrics.ObserveSubmission(metrics.SubmissionFailed)
		return SubmitResult{}, fmt.Errorf("save leaderboard state: %w", err)
	}
	metrics.ObserveSubmission(metrics.SubmissionAccepted)
	users, invites := s.state.Totals()
	metrics.SetBoardStats(users, invites)

	message := fmt.Sprintf("Update leaderboard: @%s submitted %d invites",
		upsert.Record.Username, upsert.Record.Invites)
	published := s.publishLocked(ctx, storage.PublishReasonSubmission, message)

	rank, _ := domain.RankOf(s.state, upsert.Record.UserID)
	return SubmitResult{
		Record:    upsert.Record,
		Previous:  upsert.Previous,
		Existed:   upsert.Existed,
		Rank:      rank,
		Published: published,
	}, nil
}

// Republish saves the current state, re-renders the page and publishes
// both files. It returns false with a nil error when the push failed and
// will be retried later.
func (s *Service) Republish(ctx context.Context, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, s.state); err != nil {
		return false, fmt.Errorf("save leaderboard state: %w", err)
	}
	return s.publishLocked(ctx, reason, "Update leaderboard"), nil
}

// Reconcile publishes changes a previous run left behind, such as a commit
// whose push failed before shutdown. Call it once at startup after Load.
func (s *Service) Reconcile(ctx context.Context) error {
	pending, err := s.publisher.Pending(ctx)
	if err != nil {
		return fmt.Errorf("check pending publish: %w", err)
	}
	if !pending {
		return nil
	}
	log.Printf("unpublished leaderboard changes detected, reconciling")
	if _, err := s.Republish(ctx, storage.PublishReasonReconcile); err != nil {
		return err
	}
	return nil
}

// RunRepublisher retries failed publishes on a fixed interval until the
// context is cancelled.
func (s *Service) RunRepublisher(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.Dirty() {
				continue
			}
			if _, err := s.Republish(ctx, storage.PublishReasonRepublish); err != nil {
				log.Printf("republish: %v", err)
			}
		}
	}
}

// Dirty reports whether the published site is behind the saved state.
func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Snapshot is a read-only view of the current standings.
type Snapshot struct {
	Entries      []domain.RankedEntry
	Participants int
	TotalInvites int
	LastUpdated  time.Time
}

// Snapshot returns the current standings.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, invites := s.state.Totals()
	return Snapshot{
		Entries:      domain.Rank(s.state),
		Participants: users,
		TotalInvites: invites,
		LastUpdated:  s.state.LastUpdated(),
	}
}

// UserStats is one user's record and current rank.
type UserStats struct {
	Record domain.InviteRecord
	Rank   int
}

// Stats returns the record and rank for userID, or ErrRecordNotFound when
// the user never submitted.
func (s *Service) Stats(userID int64) (UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.state.Get(userID)
	if !ok {
		return UserStats{}, domain.ErrRecordNotFound
	}
	rank, _ := domain.RankOf(s.state, userID)
	return UserStats{Record: rec, Rank: rank}, nil
}

// publishLocked renders the page and pushes it together with the state
// file. The caller holds the mutex. It returns false on failure after
// flagging the state for republication.
func (s *Service) publishLocked(ctx context.Context, reason, message string) bool {
	page, err := render.Render(render.NewInput(s.pageTitle, s.state))
	if err != nil {
		log.Printf("render leaderboard page: %v", err)
		s.recordPublish(ctx, reason, metrics.PublishFailure, 0, err, message)
		s.setDirtyLocked(true)
		return false
	}
	if err := atomicfile.Write(s.pagePath, page, 0o644); err != nil {
		log.Printf("write leaderboard page: %v", err)
		s.recordPublish(ctx, reason, metrics.PublishFailure, 0, err, message)
		s.setDirtyLocked(true)
		return false
	}

	start := s.clock()
	result, attempts, err := publish.WithRetry(ctx, s.publisher, publish.Request{
		Paths:   s.publishPaths,
		Message: message,
	}, s.policy)
	elapsed := s.clock().Sub(start).Seconds()
	if err != nil {
		log.Printf("publish leaderboard after %d attempts: %v", attempts, err)
		metrics.ObservePublish(metrics.PublishFailure, elapsed)
		s.recordPublish(ctx, reason, metrics.PublishFailure, attempts, err, message)
		s.setDirtyLocked(true)
		return false
	}

	outcome := metrics.PublishSuccess
	if !result.Committed {
		outcome = metrics.PublishNoop
	}
	metrics.ObservePublish(outcome, elapsed)
	s.recordPublish(ctx, reason, outcome, attempts, nil, message)
	s.setDirtyLocked(false)
	return true
}

func (s *Service) setDirtyLocked(dirty bool) {
	s.dirty = dirty
	metrics.SetRepublishPending(dirty)
}

func (s *Service) recordPublish(ctx context.Context, reason, outcome string, attempts int, lastErr error, message string) {
	if s.journal == nil {
		return
	}
	attempt := storage.PublishAttempt{
		Reason:        reason,
		Outcome:       outcome,
		AttemptCount:  int32(attempts),
		CommitMessage: message,
		CreatedAt:     s.clock().UTC(),
	}
	if lastErr != nil {
		attempt.LastError = lastErr.Error()
	}
	if err := s.journal.RecordPublish(ctx, attempt); err != nil {
		log.Printf("record publish attempt: %v", err)
	}
}
