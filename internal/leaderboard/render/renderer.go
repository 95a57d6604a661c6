// Package render produces the static leaderboard page from a ranked
// snapshot. Rendering is pure: identical input yields identical bytes, and
// the last-updated stamp comes from the state rather than the wall clock.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/mkallio/inviteboard/internal/leaderboard/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

var medals = [...]string{"🥇", "🥈", "🥉"}

// Input describes one leaderboard page.
type Input struct {
	Title        string
	Entries      []domain.RankedEntry
	Participants int
	TotalInvites int
	LastUpdated  time.Time
}

// NewInput assembles the page input for one state snapshot.
func NewInput(title string, state domain.State) Input {
	users, invites := state.Totals()
	return Input{
		Title:        title,
		Entries:      domain.Rank(state),
		Participants: users,
		TotalInvites: invites,
		LastUpdated:  state.LastUpdated(),
	}
}

type row struct {
	Rank      int
	Username  string
	Invites   int
	Medal     string
	RankClass string
}

type pageData struct {
	Title        string
	Rows         []row
	Participants int
	TotalInvites int
	LastUpdated  string
}

// Render returns the complete HTML document for the given input.
func Render(input Input) ([]byte, error) {
	rows := make([]row, 0, len(input.Entries))
	for _, entry := range input.Entries {
		r := row{
			Rank:     entry.Rank,
			Username: entry.Username,
			Invites:  entry.Invites,
		}
		if entry.Rank >= 1 && entry.Rank <= len(medals) {
			r.Medal = medals[entry.Rank-1]
			r.RankClass = fmt.Sprintf("rank-%d", entry.Rank)
		}
		rows = append(rows, r)
	}

	data := pageData{
		Title:        input.Title,
		Rows:         rows,
		Participants: input.Participants,
		TotalInvites: input.TotalInvites,
	}
	if !input.LastUpdated.IsZero() {
		data.LastUpdated = input.LastUpdated.UTC().Format("2006-01-02 15:04:05 UTC")
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "leaderboard.html", data); err != nil {
		return nil, fmt.Errorf("execute leaderboard template: %w", err)
	}
	return buf.Bytes(), nil
}
