package domain

import (
	"testing"
	"time"
)

func TestRank_OrdersByInvitesDescending(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	state := NewState()
	seed := []struct {
		userID   int64
		username string
		invites  int
	}{
		{101, "alice", 5},
		{102, "bob", 12},
		{103, "carol", 7},
	}
	for i, s := range seed {
		if _, err := state.Upsert(Submission{UserID: s.userID, Username: s.username, Invites: s.invites}, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("seed %s: %v", s.username, err)
		}
	}

	ranked := Rank(state)
	if len(ranked) != 3 {
		t.Fatalf("ranked %d entries, want 3", len(ranked))
	}
	wantOrder := []string{"bob", "carol", "alice"}
	for i, want := range wantOrder {
		if ranked[i].Username != want {
			t.Fatalf("rank %d = %q, want %q", i+1, ranked[i].Username, want)
		}
		if ranked[i].Rank != i+1 {
			t.Fatalf("entry %d rank = %d, want contiguous %d", i, ranked[i].Rank, i+1)
		}
	}
}

func TestRank_TieBreaksByEarlierFirstSubmission(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	state := NewState()
	if _, err := state.Upsert(Submission{UserID: 102, Username: "bob", Invites: 5}, base.Add(time.Hour)); err != nil {
		t.Fatalf("seed bob: %v", err)
	}
	if _, err := state.Upsert(Submission{UserID: 101, Username: "alice", Invites: 5}, base); err != nil {
		t.Fatalf("seed alice: %v", err)
	}

	ranked := Rank(state)
	if ranked[0].Username != "alice" || ranked[1].Username != "bob" {
		t.Fatalf("tie should favor earlier first submission, got %q then %q", ranked[0].Username, ranked[1].Username)
	}
	if ranked[0].Rank == ranked[1].Rank {
		t.Fatal("ranks must be distinct even on ties")
	}
}

func TestRank_TieBreaksByUserIDWhenTimestampsEqual(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	state := NewState()
	if _, err := state.Upsert(Submission{UserID: 202, Username: "bob", Invites: 5}, base); err != nil {
		t.Fatalf("seed bob: %v", err)
	}
	if _, err := state.Upsert(Submission{UserID: 201, Username: "alice", Invites: 5}, base); err != nil {
		t.Fatalf("seed alice: %v", err)
	}

	ranked := Rank(state)
	if ranked[0].UserID != 201 || ranked[1].UserID != 202 {
		t.Fatalf("full tie should order by user id, got %d then %d", ranked[0].UserID, ranked[1].UserID)
	}
}

func TestRank_DeterministicAcrossCalls(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	state := NewState()
	for i := int64(1); i <= 20; i++ {
		if _, err := state.Upsert(Submission{UserID: 300 + i, Username: "user", Invites: int(i % 4)}, base); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	first := Rank(state)
	for round := 0; round < 10; round++ {
		again := Rank(state)
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("rank order changed between calls at index %d: %+v vs %+v", i, first[i], again[i])
			}
		}
	}
}

func TestRank_EmptyState(t *testing.T) {
	t.Parallel()

	if got := Rank(NewState()); len(got) != 0 {
		t.Fatalf("empty state ranked %d entries, want 0", len(got))
	}
}

func TestRankOf(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	state := NewState()
	if _, err := state.Upsert(Submission{UserID: 101, Username: "alice", Invites: 5}, base); err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	if _, err := state.Upsert(Submission{UserID: 102, Username: "bob", Invites: 9}, base); err != nil {
		t.Fatalf("seed bob: %v", err)
	}

	rank, ok := RankOf(state, 101)
	if !ok || rank != 2 {
		t.Fatalf("rank of alice = %d/%v, want 2/true", rank, ok)
	}
	if _, ok := RankOf(state, 999); ok {
		t.Fatal("unknown user should not have a rank")
	}
}
