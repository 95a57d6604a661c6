package telegram

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Finnish

	message.SetString(lang, "reply.welcome",
		"🎉 *Tervetuloa %s -kutsujen tulostaululle!* 🎉\n\n"+
			"Seuraa kutsujasi ja kilpaile muiden järjestäjien kanssa!\n\n"+
			"*Komennot:*\n"+
			"/submit <määrä> - Lähetä kutsujesi määrä\n"+
			"/leaderboard - Katso tulostaulu\n"+
			"/mystats - Katso omat tilastosi\n\n"+
			"Esimerkki: `/submit 10`\n\n"+
			"Tehdään tästä huipputapahtuma! 🚀")
	message.SetString(lang, "reply.submit.usage",
		"Anna kutsujen määrä.\nEsimerkki: `/submit 10`")
	message.SetString(lang, "reply.submit.not_a_number", "Anna kelvollinen numero!")
	message.SetString(lang, "reply.submit.negative", "Kutsujen määrän täytyy olla positiivinen luku!")
	message.SetString(lang, "reply.submit.added",
		"🎉 Hienoa! Lisäsin sinut tulostaululle, kutsuja *%d*!")
	message.SetString(lang, "reply.submit.updated",
		"✅ Päivitin kutsusi määrästä *%d* määrään *%d*!")
	message.SetString(lang, "reply.submit.save_failed",
		"❌ Lähetyksen tallennus epäonnistui. Yritä myöhemmin uudelleen.")
	message.SetString(lang, "reply.submit.publish_warning",
		"⚠️ Lähetys tallennettiin, mutta julkaisu verkkosivulle epäonnistui. Tarkista lokit.")
	message.SetString(lang, "reply.board.empty",
		"📊 Tulostaulu on tyhjä!\nLähetä ensimmäisenä komennolla `/submit <määrä>`")
	message.SetString(lang, "reply.board.header", "*🏆 %s -tulostaulu 🏆*\n")
	message.SetString(lang, "reply.board.row", "%s @%s: *%d* kutsua")
	message.SetString(lang, "reply.board.stats_header", "📊 *Tilastot:*")
	message.SetString(lang, "reply.board.participants", "👥 Osallistujia yhteensä: %d")
	message.SetString(lang, "reply.board.invites", "✉️ Kutsuja yhteensä: %d")
	message.SetString(lang, "reply.stats.missing",
		"Et ole vielä lähettänyt kutsuja!\nAloita komennolla `/submit <määrä>`.")
	message.SetString(lang, "reply.stats.body",
		"*Omat tilastosi* 📊\n\nSijoitus: %s\nKutsuja: *%d*\nPäivitetty viimeksi: %s\n\nJatka samaan malliin! 🚀")
}
