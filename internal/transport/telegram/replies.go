package telegram

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mkallio/inviteboard/internal/leaderboard/app"
)

// Localizer is the minimal message-printer contract required for replies.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

var supportedTags = []language.Tag{
	language.English,
	language.Finnish,
}

var tagMatcher = language.NewMatcher(supportedTags)

// printerFor maps a Telegram language code to a reply printer, falling back
// to English for unknown codes.
func printerFor(code string) *message.Printer {
	tag := language.English
	if trimmed := strings.TrimSpace(code); trimmed != "" {
		if parsed, err := language.Parse(trimmed); err == nil {
			tag, _, _ = tagMatcher.Match(parsed)
		}
	}
	return message.NewPrinter(tag)
}

var medals = [...]string{"🥇", "🥈", "🥉"}

func welcomeReply(loc Localizer, title string) string {
	return loc.Sprintf("reply.welcome", title)
}

func submitUsageReply(loc Localizer) string {
	return loc.Sprintf("reply.submit.usage")
}

func notANumberReply(loc Localizer) string {
	return loc.Sprintf("reply.submit.not_a_number")
}

func negativeCountReply(loc Localizer) string {
	return loc.Sprintf("reply.submit.negative")
}

func submissionAddedReply(loc Localizer, invites int) string {
	return loc.Sprintf("reply.submit.added", invites)
}

func submissionUpdatedReply(loc Localizer, previous, current int) string {
	return loc.Sprintf("reply.submit.updated", previous, current)
}

func saveFailedReply(loc Localizer) string {
	return loc.Sprintf("reply.submit.save_failed")
}

func publishWarningReply(loc Localizer) string {
	return loc.Sprintf("reply.submit.publish_warning")
}

func boardEmptyReply(loc Localizer) string {
	return loc.Sprintf("reply.board.empty")
}

func boardReply(loc Localizer, title string, snapshot app.Snapshot) string {
	lines := make([]string, 0, len(snapshot.Entries)+4)
	lines = append(lines, loc.Sprintf("reply.board.header", title))
	for _, entry := range snapshot.Entries {
		lines = append(lines, loc.Sprintf("reply.board.row",
			rankMarker(entry.Rank), entry.Username, entry.Invites))
	}
	lines = append(lines, "\n"+loc.Sprintf("reply.board.stats_header"))
	lines = append(lines, loc.Sprintf("reply.board.participants", snapshot.Participants))
	lines = append(lines, loc.Sprintf("reply.board.invites", snapshot.TotalInvites))
	return strings.Join(lines, "\n")
}

func statsMissingReply(loc Localizer) string {
	return loc.Sprintf("reply.stats.missing")
}

func statsReply(loc Localizer, stats app.UserStats) string {
	display := fmt.Sprintf("#%d", stats.Rank)
	if stats.Rank >= 1 && stats.Rank <= len(medals) {
		display = medals[stats.Rank-1]
	}
	return loc.Sprintf("reply.stats.body",
		display, stats.Record.Invites, stats.Record.UpdatedAt.UTC().Format("2006-01-02"))
}

func rankMarker(rank int) string {
	if rank >= 1 && rank <= len(medals) {
		return medals[rank-1]
	}
	return fmt.Sprintf("%d.", rank)
}
