package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mkallio/inviteboard/internal/leaderboard/domain"
)

func TestRender_RanksMedalsAndCounts(t *testing.T) {
	t.Parallel()

	input := Input{
		Title: "EA Summit Helsinki",
		Entries: []domain.RankedEntry{
			{Rank: 1, UserID: 101, Username: "alice", Invites: 12},
			{Rank: 2, UserID: 102, Username: "bob", Invites: 7},
			{Rank: 3, UserID: 103, Username: "carol", Invites: 5},
			{Rank: 4, UserID: 104, Username: "dave", Invites: 2},
		},
		Participants: 4,
		TotalInvites: 26,
		LastUpdated:  time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}

	raw, err := Render(input)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body := string(raw)

	assertContains(t, body, "<title>EA Summit Helsinki - Invite Leaderboard 🏆</title>")
	assertContains(t, body, "🎉 EA Summit Helsinki 🎉")
	assertContains(t, body, "@alice")
	assertContains(t, body, "🥇")
	assertContains(t, body, "🥈")
	assertContains(t, body, "🥉")
	assertContains(t, body, `class="leaderboard-item rank-1"`)
	assertContains(t, body, "#4")
	assertNotContains(t, body, "rank-4")
	assertContains(t, body, `<div class="stat-value">4</div>`)
	assertContains(t, body, `<div class="stat-value">26</div>`)
	assertContains(t, body, "Last updated: 2026-03-14 15:09:26 UTC")
	assertNotContains(t, body, "No entries yet")

	if first := strings.Index(body, "@alice"); first > strings.Index(body, "@bob") {
		t.Fatal("expected alice row before bob row")
	}
}

func TestRender_EmptyStateIsValidPage(t *testing.T) {
	t.Parallel()

	raw, err := Render(Input{Title: "EA Summit Helsinki"})
	if err != nil {
		t.Fatalf("render empty: %v", err)
	}
	body := string(raw)

	assertContains(t, body, "No entries yet. Be the first to submit!")
	assertContains(t, body, `<div class="stat-value">0</div>`)
	assertContains(t, body, "</html>")
	assertNotContains(t, body, "Last updated:")
}

func TestRender_EscapesUsernames(t *testing.T) {
	t.Parallel()

	input := Input{
		Title: "EA Summit Helsinki",
		Entries: []domain.RankedEntry{
			{Rank: 1, UserID: 101, Username: `<script>alert("x")</script>`, Invites: 1},
		},
		Participants: 1,
		TotalInvites: 1,
		LastUpdated:  time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
	}

	raw, err := Render(input)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body := string(raw)

	assertNotContains(t, body, "<script>alert")
	assertContains(t, body, "&lt;script&gt;")
}

func TestRender_IdenticalInputYieldsIdenticalBytes(t *testing.T) {
	t.Parallel()

	input := Input{
		Title: "EA Summit Helsinki",
		Entries: []domain.RankedEntry{
			{Rank: 1, UserID: 101, Username: "alice", Invites: 12},
			{Rank: 2, UserID: 102, Username: "bob", Invites: 7},
		},
		Participants: 2,
		TotalInvites: 19,
		LastUpdated:  time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}

	first, err := Render(input)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Render(input)
		if err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("render is not deterministic for identical input")
		}
	}
}

func TestNewInput_DerivesEverythingFromState(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	state := domain.NewState()
	if _, err := state.Upsert(domain.Submission{UserID: 101, Username: "alice", Invites: 5}, base); err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	if _, err := state.Upsert(domain.Submission{UserID: 102, Username: "bob", Invites: 9}, base.Add(time.Hour)); err != nil {
		t.Fatalf("seed bob: %v", err)
	}

	input := NewInput("EA Summit Helsinki", state)
	if input.Participants != 2 || input.TotalInvites != 14 {
		t.Fatalf("totals = %d/%d, want 2/14", input.Participants, input.TotalInvites)
	}
	if len(input.Entries) != 2 || input.Entries[0].Username != "bob" {
		t.Fatalf("entries = %+v, want bob ranked first", input.Entries)
	}
	if !input.LastUpdated.Equal(base.Add(time.Hour)) {
		t.Fatalf("last updated = %v, want %v", input.LastUpdated, base.Add(time.Hour))
	}
}

// assertContains fails the test when the body misses an expected fragment.
func assertContains(t *testing.T, body string, expected string) {
	t.Helper()
	if !strings.Contains(body, expected) {
		t.Fatalf("expected page to contain %q", expected)
	}
}

// assertNotContains fails the test when the body includes an unexpected fragment.
func assertNotContains(t *testing.T, body string, unexpected string) {
	t.Helper()
	if strings.Contains(body, unexpected) {
		t.Fatalf("expected page to not contain %q", unexpected)
	}
}
