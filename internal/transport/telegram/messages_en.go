package telegram

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "reply.welcome",
		"🎉 *Welcome to %s Invite Leaderboard!* 🎉\n\n"+
			"Track your invites and compete with other organizers!\n\n"+
			"*Commands:*\n"+
			"/submit <number> - Submit your invite count\n"+
			"/leaderboard - View current standings\n"+
			"/mystats - Check your personal stats\n\n"+
			"Example: `/submit 10`\n\n"+
			"Let's make this summit amazing! 🚀")
	message.SetString(lang, "reply.submit.usage",
		"Please provide the number of invites.\nExample: `/submit 10`")
	message.SetString(lang, "reply.submit.not_a_number", "Please provide a valid number!")
	message.SetString(lang, "reply.submit.negative", "Invite count must be a positive number!")
	message.SetString(lang, "reply.submit.added",
		"🎉 Great! Added you to the leaderboard with *%d* invites!")
	message.SetString(lang, "reply.submit.updated",
		"✅ Updated your invites from *%d* to *%d*!")
	message.SetString(lang, "reply.submit.save_failed",
		"❌ Could not save your submission. Please try again later.")
	message.SetString(lang, "reply.submit.publish_warning",
		"⚠️ Submission saved but failed to publish to website. Check logs.")
	message.SetString(lang, "reply.board.empty",
		"📊 The leaderboard is empty!\nBe the first to submit with `/submit <number>`")
	message.SetString(lang, "reply.board.header", "*🏆 %s Leaderboard 🏆*\n")
	message.SetString(lang, "reply.board.row", "%s @%s: *%d* invites")
	message.SetString(lang, "reply.board.stats_header", "📊 *Stats:*")
	message.SetString(lang, "reply.board.participants", "👥 Total participants: %d")
	message.SetString(lang, "reply.board.invites", "✉️ Total invites: %d")
	message.SetString(lang, "reply.stats.missing",
		"You haven't submitted any invites yet!\nUse `/submit <number>` to get started.")
	message.SetString(lang, "reply.stats.body",
		"*Your Stats* 📊\n\nRank: %s\nInvites: *%d*\nLast updated: %s\n\nKeep up the great work! 🚀")
}
