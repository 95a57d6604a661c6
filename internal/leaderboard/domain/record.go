// Package domain holds the leaderboard records and the rules for merging
// submissions into them.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/mkallio/inviteboard/internal/platform/errors"
)

var (
	// ErrInvalidCount indicates a negative invite count.
	ErrInvalidCount = apperrors.New(apperrors.CodeSubmissionInvalidCount, "invite count must be zero or positive")
	// ErrEmptyUsername indicates a missing display name.
	ErrEmptyUsername = apperrors.New(apperrors.CodeSubmissionEmptyUsername, "username is required")
	// ErrInvalidUserID indicates a non-positive user id.
	ErrInvalidUserID = apperrors.New(apperrors.CodeSubmissionInvalidUserID, "user id must be positive")
	// ErrRecordNotFound indicates the user has no submission on record.
	ErrRecordNotFound = apperrors.New(apperrors.CodeNotFound, "no submission recorded for user")
)

// InviteRecord is one user's current claim on the leaderboard.
type InviteRecord struct {
	UserID    int64
	Username  string
	Invites   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate reports the first invariant violation on the record.
func (r InviteRecord) Validate() error {
	if r.UserID <= 0 {
		return ErrInvalidUserID
	}
	if strings.TrimSpace(r.Username) == "" {
		return ErrEmptyUsername
	}
	if r.Invites < 0 {
		return ErrInvalidCount
	}
	if r.CreatedAt.IsZero() || r.UpdatedAt.IsZero() {
		return fmt.Errorf("record timestamps are required")
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		return fmt.Errorf("record updated_at precedes created_at")
	}
	return nil
}

// Submission is one inbound invite-count claim.
type Submission struct {
	UserID   int64
	Username string
	Invites  int
}

// Normalize trims the username and validates the submission.
func (sub Submission) Normalize() (Submission, error) {
	sub.Username = strings.TrimSpace(sub.Username)
	if sub.UserID <= 0 {
		return Submission{}, ErrInvalidUserID
	}
	if sub.Username == "" {
		return Submission{}, ErrEmptyUsername
	}
	if sub.Invites < 0 {
		return Submission{}, apperrors.WithMetadata(
			apperrors.CodeSubmissionInvalidCount,
			"invite count must be zero or positive",
			map[string]string{"count": strconv.Itoa(sub.Invites)},
		)
	}
	return sub, nil
}

// State is the authoritative set of invite records keyed by user.
type State struct {
	Records map[int64]InviteRecord
}

// NewState returns an empty leaderboard state.
func NewState() State {
	return State{Records: map[int64]InviteRecord{}}
}

// Clone returns an independent copy safe to hand outside the pipeline lock.
func (s State) Clone() State {
	out := State{Records: make(map[int64]InviteRecord, len(s.Records))}
	for userID, rec := range s.Records {
		out.Records[userID] = rec
	}
	return out
}

// Get returns the record for userID.
func (s State) Get(userID int64) (InviteRecord, bool) {
	rec, ok := s.Records[userID]
	return rec, ok
}

// Len returns the number of users on the leaderboard.
func (s State) Len() int {
	return len(s.Records)
}

// Totals returns the participant count and the sum of invites.
func (s State) Totals() (users int, invites int) {
	for _, rec := range s.Records {
		invites += rec.Invites
	}
	return len(s.Records), invites
}

// LastUpdated returns the most recent update instant across all records,
// or the zero time for an empty state.
func (s State) LastUpdated() time.Time {
	var last time.Time
	for _, rec := range s.Records {
		if rec.UpdatedAt.After(last) {
			last = rec.UpdatedAt
		}
	}
	return last
}

// UpsertResult describes the state change one submission produced.
type UpsertResult struct {
	Record   InviteRecord
	Previous InviteRecord
	Existed  bool
}

// Upsert merges one submission into the state. A resubmission overwrites the
// stored invite count and refreshes the username; the first submission
// timestamp is preserved. The caller owns locking and persistence.
func (s *State) Upsert(sub Submission, now time.Time) (UpsertResult, error) {
	normalized, err := sub.Normalize()
	if err != nil {
		return UpsertResult{}, err
	}
	if s.Records == nil {
		s.Records = map[int64]InviteRecord{}
	}
	now = now.UTC()

	var result UpsertResult
	if prev, ok := s.Records[normalized.UserID]; ok {
		result.Previous = prev
		result.Existed = true
		rec := prev
		rec.Username = normalized.Username
		rec.Invites = normalized.Invites
		// A regressing clock must not break the updated-after-created invariant.
		if now.Before(rec.CreatedAt) {
			now = rec.CreatedAt
		}
		rec.UpdatedAt = now
		s.Records[normalized.UserID] = rec
		result.Record = rec
		return result, nil
	}

	rec := InviteRecord{
		UserID:    normalized.UserID,
		Username:  normalized.Username,
		Invites:   normalized.Invites,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Records[normalized.UserID] = rec
	result.Record = rec
	return result, nil
}
