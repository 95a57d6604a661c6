// Package jsonfile persists leaderboard state as a single deterministic
// JSON document. Saving the same state twice produces byte-identical files
// so the publisher can skip commits when nothing changed.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mkallio/inviteboard/internal/leaderboard/domain"
	"github.com/mkallio/inviteboard/internal/leaderboard/storage"
	apperrors "github.com/mkallio/inviteboard/internal/platform/errors"
	"github.com/mkallio/inviteboard/internal/platform/storage/atomicfile"
)

// Store reads and writes one leaderboard state file.
type Store struct {
	path string
}

var _ storage.Store = (*Store)(nil)

// New creates a store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the configured state file location.
func (s *Store) Path() string {
	return s.path
}

// entry field order is alphabetical so the marshaled document is stable.
type entry struct {
	CreatedAt time.Time `json:"created_at"`
	Invites   int       `json:"invites"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
}

type fileState struct {
	Entries []entry `json:"entries"`
}

// Load reads the state file. A missing file yields an empty state; any
// malformed or invariant-violating content yields storage.ErrCorrupt so the
// caller refuses to start instead of silently discarding history.
func (s *Store) Load(_ context.Context) (domain.State, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewState(), nil
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("read state file: %w", err)
	}

	var doc fileState
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return domain.State{}, apperrors.Wrap(apperrors.CodeStorageCorrupt, "decode state file", err)
	}

	state := domain.NewState()
	for _, e := range doc.Entries {
		rec := domain.InviteRecord{
			UserID:    e.UserID,
			Username:  e.Username,
			Invites:   e.Invites,
			CreatedAt: e.CreatedAt.UTC(),
			UpdatedAt: e.UpdatedAt.UTC(),
		}
		if err := rec.Validate(); err != nil {
			return domain.State{}, apperrors.Wrap(apperrors.CodeStorageCorrupt,
				fmt.Sprintf("state entry for user %d is invalid", e.UserID), err)
		}
		if _, exists := state.Records[rec.UserID]; exists {
			return domain.State{}, apperrors.New(apperrors.CodeStorageCorrupt,
				fmt.Sprintf("duplicate state entry for user %d", rec.UserID))
		}
		state.Records[rec.UserID] = rec
	}
	return state, nil
}

// Save atomically replaces the state file so readers never observe a
// partial write. On failure the previously persisted bytes stay intact.
func (s *Store) Save(_ context.Context, state domain.State) error {
	raw, err := Encode(state)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageWrite, "encode state", err)
	}
	if err := atomicfile.Write(s.path, raw, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageWrite, "replace state file", err)
	}
	return nil
}

// Encode marshals the state into its canonical on-disk form: entries sorted
// by user id, keys in fixed order, two-space indentation, no HTML escaping,
// trailing newline.
func Encode(state domain.State) ([]byte, error) {
	entries := make([]entry, 0, len(state.Records))
	for _, rec := range state.Records {
		entries = append(entries, entry{
			CreatedAt: rec.CreatedAt.UTC(),
			Invites:   rec.Invites,
			UpdatedAt: rec.UpdatedAt.UTC(),
			UserID:    rec.UserID,
			Username:  rec.Username,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fileState{Entries: entries}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
